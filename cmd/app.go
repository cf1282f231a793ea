package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/catalog"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/openlibrary"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
)

func (a *app) openStore() (storage.Store, error) {
	store, err := storage.Open(a.cfg.Store.Backend, a.cfg.Paths.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

// openDryRunStore copies the persistent store into memory so a run can be
// previewed without writing anything
func (a *app) openDryRunStore(ctx context.Context) (storage.Store, error) {
	persistent, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer persistent.Close()

	records, err := persistent.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	memory := storage.NewMemory()
	memory.Seed(records)
	slog.Info("Dry run: using in-memory copy of store", "records", len(records))
	return memory, nil
}

func (a *app) catalogClient() *catalog.Client {
	return catalog.NewClient(a.cfg.CatalogConfig())
}

// dumpScanner returns nil when no dump is configured
func (a *app) dumpScanner(index openlibrary.ResolvedIndex) *openlibrary.Scanner {
	if a.cfg.Paths.Dump == "" {
		return nil
	}
	return openlibrary.NewScanner(a.cfg.Paths.Dump, a.cfg.ScanConfig(), index)
}

// newResolver wires the store, the catalog client, the dump scanner and the
// reject log. The returned close function releases the reject log.
func (a *app) newResolver(store storage.Store, recordRejects bool) (*resolver.Resolver, func() error, error) {
	client := a.catalogClient()
	opts := []resolver.Option{
		resolver.WithRemote(client),
		resolver.WithTitleFetcher(client),
		resolver.WithBudget(client.Limiter()),
	}
	if scanner := a.dumpScanner(store); scanner != nil {
		opts = append(opts, resolver.WithBulk(scanner))
	} else {
		slog.Debug("No dump configured, remote catalog only")
	}

	closeFn := func() error { return nil }
	if recordRejects {
		rejects, err := storage.OpenRejectLog(a.cfg.Paths.Rejects)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open reject log: %w", err)
		}
		opts = append(opts, resolver.WithRejectLog(rejects))
		closeFn = rejects.Close
	}

	return resolver.New(a.cfg.ResolverConfig(), store, opts...), closeFn, nil
}
