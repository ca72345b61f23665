package contract

import "presale_pool/sdk"

// packU64BE appends x big-endian so leveldb iteration order matches numeric order.
func packU64BE(x uint64, dst []byte) []byte {
	return append(dst,
		byte(x>>56),
		byte(x>>48),
		byte(x>>40),
		byte(x>>32),
		byte(x>>24),
		byte(x>>16),
		byte(x>>8),
		byte(x),
	)
}

// singletonKey is used for the pool-level records that exist once per store.
func singletonKey(prefix byte) string {
	return string([]byte{prefix})
}

func poolConfigKey() string     { return singletonKey(kPoolConfig) }
func poolStateKey() string      { return singletonKey(kPoolState) }
func poolPolicyKey() string     { return singletonKey(kPoolPolicy) }
func poolAggregatesKey() string { return singletonKey(kPoolAggregates) }
func dropCutoffKey() string     { return singletonKey(kDropCutoff) }

// participantKey appends the raw 20 address bytes to the prefix.
func participantKey(addr sdk.Address) string {
	buf := make([]byte, 0, 1+len(addr))
	buf = append(buf, kParticipant)
	buf = append(buf, addr.Bytes()...)
	return string(buf)
}

// participantOrderKey keeps the deposit-order index under 0x11.
func participantOrderKey(seq uint64) string {
	buf := make([]byte, 0, 9)
	buf = append(buf, kParticipantOrder)
	buf = packU64BE(seq, buf)
	return string(buf)
}
