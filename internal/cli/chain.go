package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"upstox-chainwatch/internal/engine"
	"upstox-chainwatch/internal/errors"
	"upstox-chainwatch/internal/meta"
	"upstox-chainwatch/internal/models"
	"upstox-chainwatch/internal/refdata"
	"upstox-chainwatch/internal/snapshot"
	"upstox-chainwatch/internal/state"
	"upstox-chainwatch/internal/upstox"
	"upstox-chainwatch/pkg/utils"
)

func newChainCmd(app *App) *cobra.Command {
	var expiry string

	cmd := &cobra.Command{
		Use:   "chain <underlying>",
		Short: "Fetch and print one underlying's near-ATM analytics table",
		Long: `Runs a single resolve-fetch-build cycle for one underlying and prints
the strike-pair table the serve loop would broadcast. Useful for checking
credentials, expiry dates and reference data without starting the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(app, args[0], expiry)
		},
	}
	cmd.Flags().StringVar(&expiry, "expiry", "", "expiry date YYYY-MM-DD (default: configured expiry)")
	return cmd
}

func runChain(app *App, name, expiry string) error {
	cfg := app.Config
	if !cfg.Authenticated() {
		return errors.Wrap(errors.ErrNotAuthenticated, "set upstox.access_token in credentials.toml or UPSTOX_ACCESS_TOKEN")
	}

	tables, err := refdata.Load(cfg.ConfigDir)
	if err != nil {
		return errors.Wrap(err, "loading reference tables")
	}
	key, ok := tables.SpotKey(name)
	if !ok {
		return errors.Wrapf(errors.ErrNoData, "unknown underlying %q", name)
	}
	if expiry == "" {
		expiry = cfg.Underlyings.ExpiryFor(name)
	}

	client := upstox.NewClient(upstox.Config{
		AccessToken: cfg.Credentials.Upstox.AccessToken,
		Timeout:     cfg.Refresh.FetchTimeout,
	}, app.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	target := meta.Target{Name: name, SpotKey: key, Expiry: expiry}
	resolver := meta.NewResolver(meta.DefaultConfig(), client, app.Logger)
	m, err := resolver.Resolve(ctx, target)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", name)
	}

	st := state.NewStore()
	if vix, err := client.GetQuote(ctx, upstox.VIXKey); err == nil && vix.LastPrice > 0 {
		st.SetVIX(vix.LastPrice)
	}

	// One synchronous quote pass over the resolved universe.
	metas := map[string]*models.UnderlyingMeta{name: m}
	eng := engine.New(engine.Config{}, st, resolver, []meta.Target{target}, client,
		snapshot.NewBuilder(st, tables, app.Logger), nil, app.Logger)
	st.ReplaceMeta(metas, meta.TrackedKeys([]meta.Target{target}, metas))
	eng.RunQuoteCycleOnce(ctx)

	snap := st.Latest()
	if snap == nil || len(snap.Underlyings) == 0 {
		return errors.NewDataError("snapshot", name, "no rows produced (market closed or empty chain)", errors.ErrNoData)
	}

	printUnderlying(&snap.Underlyings[0], st.VIX())
	return nil
}

func printUnderlying(u *models.UnderlyingSnapshot, vix float64) {
	fmt.Printf("%s  spot %s  lot %d  expiry %s  vix %.2f  status %s\n\n",
		u.Name, utils.FormatIndianCurrency(u.Spot), u.Lot, u.Expiry, vix, u.Status)

	fmt.Printf("%-18s %10s %10s %10s %10s | %10s %10s %10s %10s | %8s %8s  %s\n",
		"PAIR", "CE LTP", "CE TV", "CE FV", "CE OI", "PE LTP", "PE TV", "PE FV", "PE OI", "DIFF", "FV DIFF", "BIAS")
	for _, r := range u.Rows {
		fmt.Printf("%-18s %10.2f %10.2f %10.2f %10s | %10.2f %10.2f %10.2f %10s | %8.2f %8.2f  %s\n",
			r.Pair,
			r.CELTP, r.CETimeValue, r.CEFairValue, utils.FormatQuantity(r.CEOI),
			r.PELTP, r.PETimeValue, r.PEFairValue, utils.FormatQuantity(r.PEOI),
			r.Diff, r.FairValueDiff, r.Bias)
	}
}
