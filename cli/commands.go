package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"presale_pool/contract"
	"presale_pool/sdk"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the presale-pool command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "presale-pool",
		Short:         "Pooled presale contribution ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "yaml config file (PRESALE_* env vars override it)")

	root.AddCommand(
		newInitCmd(opts),
		newDepositCmd(opts),
		newWithdrawCmd(opts),
		newWithdrawAllCmd(opts),
		newRefundCmd(opts),
		newSettingsCmd(opts),
		newFailCmd(opts),
		newPayCmd(opts),
		newShowCmd(opts),
		newPayoutsCmd(opts),
	)
	return root
}

// withApp opens config and store for one command and closes them afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

// withPool is withApp plus loading the existing pool.
func withPool(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app, p *contract.Pool) error) error {
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		p, err := a.pool(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, a, p)
	})
}

// addFrom registers the --from flag every mutating command needs.
func addFrom(cmd *cobra.Command) *string {
	from := cmd.Flags().String("from", "", "caller address")
	_ = cmd.MarkFlagRequired("from")
	return from
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

func newInitCmd(opts *rootOptions) *cobra.Command {
	var (
		adminHex      string
		drops         uint32
		min, max, cap string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the pool with the configured or given settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if adminHex == "" {
					adminHex = a.cfg.Pool.Administrator
				}
				admin, err := sdk.ParseAddress(adminHex)
				if err != nil {
					return fmt.Errorf("administrator: %w", err)
				}
				if !cmd.Flags().Changed("drops") {
					drops = a.cfg.Pool.TokenDrops
				}
				if cmd.Flags().Changed("min") {
					a.cfg.Pool.MinContribution = min
				}
				if cmd.Flags().Changed("max") {
					a.cfg.Pool.MaxContribution = max
				}
				if cmd.Flags().Changed("cap") {
					a.cfg.Pool.MaxPoolBalance = cap
				}
				settings, err := a.cfg.Settings()
				if err != nil {
					return err
				}
				deps, err := a.deps()
				if err != nil {
					return err
				}
				if _, err := contract.Create(ctx, deps, contract.CreateArgs{
					Administrator: admin,
					TokenDrops:    drops,
					Settings:      settings,
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pool created, administrator %s, token drops %d\n", admin.Hex(), drops)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&adminHex, "admin", "", "administrator address (default pool.administrator)")
	cmd.Flags().Uint32Var(&drops, "drops", 0, "token drops (default pool.token_drops)")
	cmd.Flags().StringVar(&min, "min", "", "min contribution in ether")
	cmd.Flags().StringVar(&max, "max", "", "max contribution in ether")
	cmd.Flags().StringVar(&cap, "cap", "", "max pool balance in ether")
	return cmd
}

func newDepositCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Deposit ether into the pool",
		Args:  cobra.ExactArgs(1),
	}
	from := addFrom(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		caller, err := sdk.ParseAddress(*from)
		if err != nil {
			return err
		}
		amount, err := sdk.EtherToWei(args[0])
		if err != nil {
			return err
		}
		return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
			if err := p.Deposit(ctx, caller, amount); err != nil {
				return err
			}
			return printParticipant(ctx, cmd.OutOrStdout(), p, caller)
		})
	}
	return cmd
}

func newWithdrawCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw AMOUNT",
		Short: "Withdraw part of your balance while the pool is open",
		Args:  cobra.ExactArgs(1),
	}
	from := addFrom(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		caller, err := sdk.ParseAddress(*from)
		if err != nil {
			return err
		}
		amount, err := sdk.EtherToWei(args[0])
		if err != nil {
			return err
		}
		return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
			if err := p.Withdraw(ctx, caller, amount); err != nil {
				return err
			}
			return printParticipant(ctx, cmd.OutOrStdout(), p, caller)
		})
	}
	return cmd
}

func newWithdrawAllCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw-all",
		Short: "Withdraw your whole balance",
		Args:  cobra.NoArgs,
	}
	from := addFrom(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		caller, err := sdk.ParseAddress(*from)
		if err != nil {
			return err
		}
		return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
			r, err := p.WithdrawAll(ctx, caller)
			if err != nil {
				return err
			}
			if r == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to withdraw")
				return nil
			}
			printRefunds(cmd.OutOrStdout(), []contract.Refund{*r})
			return nil
		})
	}
	return cmd
}

func newRefundCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund ADDRESS...",
		Short: "Refund the listed participants of a failed pool",
		Args:  cobra.MinimumNArgs(1),
	}
	from := addFrom(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		caller, err := sdk.ParseAddress(*from)
		if err != nil {
			return err
		}
		addrs, err := sdk.ParseAddresses(args)
		if err != nil {
			return err
		}
		return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
			refunds, err := p.WithdrawAllForMany(ctx, caller, addrs)
			// paid entries are real even when the batch stopped early
			printRefunds(cmd.OutOrStdout(), refunds)
			return err
		})
	}
	return cmd
}

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	var (
		min, max, cap  string
		allowListOnly  bool
		overrides      []string
		clearOverrides bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change the contribution settings and reallocate",
		Args:  cobra.NoArgs,
	}
	from := addFrom(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		caller, err := sdk.ParseAddress(*from)
		if err != nil {
			return err
		}
		return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
			s, err := p.Policy(ctx)
			if err != nil {
				return err
			}
			if s.MinContribution, err = orCurrent(min, s.MinContribution); err != nil {
				return err
			}
			if s.MaxContribution, err = orCurrent(max, s.MaxContribution); err != nil {
				return err
			}
			if s.MaxPoolBalance, err = orCurrent(cap, s.MaxPoolBalance); err != nil {
				return err
			}
			if cmd.Flags().Changed("allow-list-only") {
				s.AllowListOnly = allowListOnly
			}
			if clearOverrides {
				s.Overrides = nil
			}
			if len(overrides) > 0 {
				s.Overrides = s.Overrides[:0]
				for _, raw := range overrides {
					o, err := parseOverride(raw)
					if err != nil {
						return err
					}
					s.Overrides = append(s.Overrides, o)
				}
			}
			if err := p.SetContributionSettings(ctx, caller, *s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "settings updated: min %s max %s cap %s overrides %d\n",
				sdk.WeiToEther(s.MinContribution), sdk.WeiToEther(s.MaxContribution),
				sdk.WeiToEther(s.MaxPoolBalance), len(s.Overrides))
			return nil
		})
	}
	cmd.Flags().StringVar(&min, "min", "", "min contribution in ether (default keep)")
	cmd.Flags().StringVar(&max, "max", "", "max contribution in ether (default keep)")
	cmd.Flags().StringVar(&cap, "cap", "", "max pool balance in ether (default keep)")
	cmd.Flags().BoolVar(&allowListOnly, "allow-list-only", false, "only addresses with an override may contribute")
	cmd.Flags().StringArrayVar(&overrides, "override", nil, "address:min:max, repeatable, replaces the list")
	cmd.Flags().BoolVar(&clearOverrides, "clear-overrides", false, "drop every override")
	return cmd
}

func newFailCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fail",
		Short: "Mark the pool as failed and open refunds",
		Args:  cobra.NoArgs,
	}
	from := addFrom(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		caller, err := sdk.ParseAddress(*from)
		if err != nil {
			return err
		}
		return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
			if err := p.Fail(ctx, caller); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pool failed, refunds open")
			return nil
		})
	}
	return cmd
}

func newPayCmd(opts *rootOptions) *cobra.Command {
	var targetHex, fee, minBalance, payload string
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Forward the pooled contributions to the presale",
		Args:  cobra.NoArgs,
	}
	from := addFrom(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		caller, err := sdk.ParseAddress(*from)
		if err != nil {
			return err
		}
		target, err := sdk.ParseAddress(targetHex)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		args := contract.PayArgs{Target: target, Payload: []byte(payload)}
		if args.FeeOverride, err = parseEther(fee); err != nil {
			return err
		}
		if args.MinPoolBalance, err = parseEther(minBalance); err != nil {
			return err
		}
		return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
			payment, err := p.PayToPresale(ctx, caller, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paid %s to %s, fee %s\n",
				sdk.WeiToEther(payment.Amount), payment.Target.Hex(), sdk.WeiToEther(payment.Fee))
			return nil
		})
	}
	cmd.Flags().StringVar(&targetHex, "target", "", "presale address")
	cmd.Flags().StringVar(&fee, "fee", "", "fee in ether, replaces the fee schedule")
	cmd.Flags().StringVar(&minBalance, "min-balance", "", "abort when the pool holds less ether")
	cmd.Flags().StringVar(&payload, "payload", "", "opaque data passed to the presale")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print state, settings, totals and participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd, opts, func(ctx context.Context, _ *app, p *contract.Pool) error {
				snap, err := p.Snapshot(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					raw, err := snap.JSON()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(raw))
					return nil
				}
				printSnapshot(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print json")
	return cmd
}

func newPayoutsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "payouts",
		Short: "List recorded transfers and presale payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				list, err := a.payouts.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tKIND\tTO\tAMOUNT\tFEE")
				for _, p := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Kind, p.To, weiString(p.Amount), weiString(p.Fee))
				}
				return w.Flush()
			})
		},
	}
}

// -----------------------------------------------------------------------------
// Output
// -----------------------------------------------------------------------------

func printParticipant(ctx context.Context, out io.Writer, p *contract.Pool, addr sdk.Address) error {
	part, ok, err := p.Participant(ctx, addr)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "%s has no balance\n", addr.Hex())
		return nil
	}
	fmt.Fprintf(out, "%s contribution %s remaining %s\n",
		addr.Hex(), sdk.WeiToEther(part.Contribution), sdk.WeiToEther(part.Remaining))
	return nil
}

func printRefunds(out io.Writer, refunds []contract.Refund) {
	for _, r := range refunds {
		fmt.Fprintf(out, "refunded %s to %s (gas %s)\n", sdk.WeiToEther(r.Net), r.Address.Hex(), sdk.WeiToEther(r.Gas))
	}
}

func printSnapshot(out io.Writer, s *contract.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "state\t%s\n", s.State)
	fmt.Fprintf(w, "administrator\t%s\n", s.Config.Administrator.Hex())
	fmt.Fprintf(w, "token drops\t%d\n", s.Config.TokenDrops)
	fmt.Fprintf(w, "held\t%s\n", sdk.WeiToEther(s.Held()))
	fmt.Fprintf(w, "min / max / cap\t%s / %s / %s\n", sdk.WeiToEther(s.Policy.MinContribution),
		sdk.WeiToEther(s.Policy.MaxContribution), sdk.WeiToEther(s.Policy.MaxPoolBalance))
	fmt.Fprintf(w, "contributed\t%s\n", sdk.WeiToEther(s.Totals.TotalContribution))
	fmt.Fprintf(w, "remaining\t%s\n", sdk.WeiToEther(s.Totals.TotalRemaining))
	fmt.Fprintf(w, "withdrawn\t%s\n", sdk.WeiToEther(s.Totals.TotalWithdrawn))
	fmt.Fprintf(w, "forwarded / fees\t%s / %s\n", sdk.WeiToEther(s.Totals.TotalForwarded), sdk.WeiToEther(s.Totals.TotalFees))
	fmt.Fprintf(w, "gas deducted\t%s\n", sdk.WeiToEther(s.Totals.TotalGasDeducted))
	fmt.Fprintln(w, "\nADDRESS\tCONTRIBUTION\tREMAINING")
	for _, p := range s.Participants {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Address.Hex(), sdk.WeiToEther(p.Contribution), sdk.WeiToEther(p.Remaining))
	}
	_ = w.Flush()
}

// weiString renders a stored wei string as ether, empty stays empty.
func weiString(v string) string {
	if v == "" {
		return ""
	}
	wei, err := uint256.FromDecimal(v)
	if err != nil {
		return v
	}
	return sdk.WeiToEther(wei)
}
