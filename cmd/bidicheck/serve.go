package main

import (
	"github.com/spf13/cobra"

	"github.com/hazyhaar/bidicheck/checker"
	"github.com/hazyhaar/bidicheck/server"
	"github.com/hazyhaar/bidicheck/store"
)

var serveFlags struct {
	addr    string
	noStore bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the check and history HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveFlags.addr
		}

		svc, st, cleanup, err := newService(!serveFlags.noStore)
		if err != nil {
			return err
		}
		defer cleanup()

		return server.New(svc, st, logger).ListenAndServe(cmd.Context(), cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&serveFlags.noStore, "no-store", false, "do not record scans or serve /scans")
}

// newService builds the check service shared by serve and mcp. With
// withStore, scans are recorded in the history database, which is returned.
func newService(withStore bool) (*checker.Service, *store.Store, func(), error) {
	loader, browser, err := cfg.Loader(logger)
	if err != nil {
		return nil, nil, nil, err
	}
	var st *store.Store
	if withStore {
		if st, err = openStore(); err != nil {
			return nil, nil, nil, err
		}
	}
	router, err := deliveryRouter(st)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, nil, nil, err
	}

	svc := &checker.Service{
		Loader:   loader.Load,
		Revision: checker.Revision(cfg.Check.Revision),
		Logger:   logger,
	}
	if router.Len() > 0 {
		svc.Sink = router
	}
	cleanup := func() {
		router.Close()
		if browser != nil {
			browser.Close()
		}
	}
	return svc, st, cleanup, nil
}
