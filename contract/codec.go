package contract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"presale_pool/sdk"
)

var errUnexpectedEOF = errors.New("unexpected EOF")

type binWriter struct {
	buf bytes.Buffer
}

// newWriter spins up a fresh writer so we dont leak old bytes between encodes.
func newWriter() *binWriter { return &binWriter{} }

func (w *binWriter) bytes() []byte { return w.buf.Bytes() }

// writeBool squashes bools into a single byte flag for deterministic payloads.
func (w *binWriter) writeBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *binWriter) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeInt64(v int64) {
	w.writeUint64(uint64(v))
}

// writeVarUint uses varints to keep counts and lens compact.
func (w *binWriter) writeVarUint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

// writeAmount stores the minimal big-endian bytes behind a length byte,
// so a zero balance costs one byte instead of 32.
func (w *binWriter) writeAmount(v *uint256.Int) {
	if v == nil || v.IsZero() {
		w.buf.WriteByte(0)
		return
	}
	b := v.Bytes()
	w.buf.WriteByte(byte(len(b)))
	w.buf.Write(b)
}

// writeOptionalAmount writes a presence bit so nil bounds survive the round trip.
func (w *binWriter) writeOptionalAmount(v *uint256.Int) {
	if v == nil {
		w.writeBool(false)
		return
	}
	w.writeBool(true)
	w.writeAmount(v)
}

// writeAddress dumps the fixed 20 bytes.
func (w *binWriter) writeAddress(a sdk.Address) {
	w.buf.Write(a.Bytes())
}

// ------------------------------------------------------------------
// Record encoders
// ------------------------------------------------------------------

// EncodeParticipant packs a Participant so storage stays lean.
// Example payload: EncodeParticipant(&Participant{Seq: 1, Contribution: sdk.Ether(5)})
func EncodeParticipant(p *Participant) []byte {
	w := newWriter()
	w.writeAddress(p.Address)
	w.writeUint64(p.Seq)
	w.writeAmount(p.Remaining)
	w.writeAmount(p.Contribution)
	return w.bytes()
}

// EncodePolicy keeps overrides in list order, the order the administrator passed them.
func EncodePolicy(p *Policy) []byte {
	w := newWriter()
	w.writeAmount(p.MinContribution)
	w.writeAmount(p.MaxContribution)
	w.writeAmount(p.MaxPoolBalance)
	w.writeBool(p.AllowListOnly)
	w.writeVarUint(uint64(len(p.Overrides)))
	for _, o := range p.Overrides {
		w.writeAddress(o.Address)
		w.writeOptionalAmount(o.Min)
		w.writeOptionalAmount(o.Max)
	}
	return w.bytes()
}

// EncodeAggregates serializes the pool totals.
func EncodeAggregates(a *Aggregates) []byte {
	w := newWriter()
	w.writeAmount(a.TotalDeposited)
	w.writeAmount(a.TotalContribution)
	w.writeAmount(a.TotalRemaining)
	w.writeAmount(a.TotalWithdrawn)
	w.writeAmount(a.TotalForwarded)
	w.writeAmount(a.TotalFees)
	w.writeAmount(a.TotalGasDeducted)
	w.writeUint64(a.Participants)
	return w.bytes()
}

// EncodePoolConfig serializes the creation-time config.
func EncodePoolConfig(c *PoolConfig) []byte {
	w := newWriter()
	w.writeAddress(c.Administrator)
	w.writeVarUint(uint64(c.TokenDrops))
	w.writeInt64(c.CreatedAt)
	return w.bytes()
}

// ------------------------------------------------------------------
// Decoder helpers
// ------------------------------------------------------------------

type binReader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *binReader {
	return &binReader{data: data}
}

func (r *binReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) readBool() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

func (r *binReader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, errUnexpectedEOF
	}
	val := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return val, nil
}

func (r *binReader) readInt64() (int64, error) {
	v, err := r.readUint64()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (r *binReader) readVarUint() (uint64, error) {
	val, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, errors.New("invalid varuint")
	}
	r.pos += n
	return val, nil
}

// readAmount undoes writeAmount; lengths over 32 are rejected.
func (r *binReader) readAmount() (*uint256.Int, error) {
	l, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if l > 32 {
		return nil, fmt.Errorf("amount length %d", l)
	}
	if r.pos+int(l) > len(r.data) {
		return nil, errUnexpectedEOF
	}
	v := new(uint256.Int).SetBytes(r.data[r.pos : r.pos+int(l)])
	r.pos += int(l)
	return v, nil
}

func (r *binReader) readOptionalAmount() (*uint256.Int, error) {
	ok, err := r.readBool()
	if err != nil || !ok {
		return nil, err
	}
	return r.readAmount()
}

func (r *binReader) readAddress() (sdk.Address, error) {
	var a sdk.Address
	if r.pos+len(a) > len(r.data) {
		return a, errUnexpectedEOF
	}
	copy(a[:], r.data[r.pos:r.pos+len(a)])
	r.pos += len(a)
	return a, nil
}

// done rejects trailing garbage so a truncated rewrite cant pass as valid.
func (r *binReader) done() error {
	if r.pos != len(r.data) {
		return fmt.Errorf("%d trailing bytes", len(r.data)-r.pos)
	}
	return nil
}

// ------------------------------------------------------------------
// Record decoders
// ------------------------------------------------------------------

// DecodeParticipant is the inverse of EncodeParticipant.
func DecodeParticipant(data []byte) (*Participant, error) {
	r := newReader(data)
	p := &Participant{}
	var err error
	if p.Address, err = r.readAddress(); err != nil {
		return nil, corrupt("participant", err)
	}
	if p.Seq, err = r.readUint64(); err != nil {
		return nil, corrupt("participant", err)
	}
	if p.Remaining, err = r.readAmount(); err != nil {
		return nil, corrupt("participant", err)
	}
	if p.Contribution, err = r.readAmount(); err != nil {
		return nil, corrupt("participant", err)
	}
	if err = r.done(); err != nil {
		return nil, corrupt("participant", err)
	}
	return p, nil
}

// DecodePolicy is the inverse of EncodePolicy.
func DecodePolicy(data []byte) (*Policy, error) {
	r := newReader(data)
	p := &Policy{}
	var err error
	if p.MinContribution, err = r.readAmount(); err != nil {
		return nil, corrupt("policy", err)
	}
	if p.MaxContribution, err = r.readAmount(); err != nil {
		return nil, corrupt("policy", err)
	}
	if p.MaxPoolBalance, err = r.readAmount(); err != nil {
		return nil, corrupt("policy", err)
	}
	if p.AllowListOnly, err = r.readBool(); err != nil {
		return nil, corrupt("policy", err)
	}
	count, err := r.readVarUint()
	if err != nil {
		return nil, corrupt("policy", err)
	}
	if count > uint64(len(data)) {
		return nil, corrupt("policy", fmt.Errorf("override count %d", count))
	}
	p.Overrides = make([]Override, 0, count)
	for i := uint64(0); i < count; i++ {
		var o Override
		if o.Address, err = r.readAddress(); err != nil {
			return nil, corrupt("policy", err)
		}
		if o.Min, err = r.readOptionalAmount(); err != nil {
			return nil, corrupt("policy", err)
		}
		if o.Max, err = r.readOptionalAmount(); err != nil {
			return nil, corrupt("policy", err)
		}
		p.Overrides = append(p.Overrides, o)
	}
	if err = r.done(); err != nil {
		return nil, corrupt("policy", err)
	}
	return p, nil
}

// DecodeAggregates is the inverse of EncodeAggregates.
func DecodeAggregates(data []byte) (*Aggregates, error) {
	r := newReader(data)
	a := &Aggregates{}
	fields := []**uint256.Int{
		&a.TotalDeposited,
		&a.TotalContribution,
		&a.TotalRemaining,
		&a.TotalWithdrawn,
		&a.TotalForwarded,
		&a.TotalFees,
		&a.TotalGasDeducted,
	}
	for _, f := range fields {
		v, err := r.readAmount()
		if err != nil {
			return nil, corrupt("aggregates", err)
		}
		*f = v
	}
	var err error
	if a.Participants, err = r.readUint64(); err != nil {
		return nil, corrupt("aggregates", err)
	}
	if err = r.done(); err != nil {
		return nil, corrupt("aggregates", err)
	}
	return a, nil
}

// DecodePoolConfig is the inverse of EncodePoolConfig.
func DecodePoolConfig(data []byte) (*PoolConfig, error) {
	r := newReader(data)
	c := &PoolConfig{}
	var err error
	if c.Administrator, err = r.readAddress(); err != nil {
		return nil, corrupt("config", err)
	}
	drops, err := r.readVarUint()
	if err != nil {
		return nil, corrupt("config", err)
	}
	if drops > uint64(^uint32(0)) {
		return nil, corrupt("config", fmt.Errorf("token drops %d", drops))
	}
	c.TokenDrops = uint32(drops)
	if c.CreatedAt, err = r.readInt64(); err != nil {
		return nil, corrupt("config", err)
	}
	if err = r.done(); err != nil {
		return nil, corrupt("config", err)
	}
	return c, nil
}

func corrupt(record string, err error) error {
	return fmt.Errorf("%w: decode %s: %w", ErrCorruptState, record, err)
}
