package main

import (
	"context"
	"fmt"

	"github.com/redbco/redb-archive/pkg/config"
	"github.com/redbco/redb-archive/pkg/container"
)

type stores struct {
	main     container.Store
	external container.Store
	close    func() error
}

func noClose() error { return nil }

// createStores opens the output archive for writing.
func createStores(ctx context.Context, c *config.Config) (*stores, error) {
	if c.Output.Path == "" {
		return nil, fmt.Errorf("output.path is required")
	}
	s := &stores{close: noClose}
	switch c.Output.Format {
	case config.FormatZip:
		z, err := container.CreateZip(c.Output.Path, false, c.Codec.SpoolDir, log)
		if err != nil {
			return nil, err
		}
		s.main, s.close = z, z.Close
	default:
		d, err := container.NewDirStore(c.Output.Path, log)
		if err != nil {
			return nil, err
		}
		s.main = d
	}

	external, err := objectStore(ctx, c, true)
	if err != nil {
		s.close()
		return nil, err
	}
	s.external = external
	return s, nil
}

// openStores opens an existing archive for reading.
func openStores(ctx context.Context, c *config.Config) (*stores, error) {
	if c.Output.Path == "" {
		return nil, fmt.Errorf("output.path is required")
	}
	s := &stores{close: noClose}
	switch c.Output.Format {
	case config.FormatZip:
		z, err := container.OpenZip(c.Output.Path, log)
		if err != nil {
			return nil, err
		}
		s.main, s.close = z, z.Close
	default:
		d, err := container.NewDirStore(c.Output.Path, log)
		if err != nil {
			return nil, err
		}
		s.main = d
	}

	external, err := objectStore(ctx, c, false)
	if err != nil {
		s.close()
		return nil, err
	}
	s.external = external
	return s, nil
}

// objectStore returns the external object store, or nil to keep external
// objects beside the main archive.
func objectStore(ctx context.Context, c *config.Config, create bool) (container.Store, error) {
	if !c.ObjectStore.Enabled {
		return nil, nil
	}
	store, err := container.NewObjectStore(c.ObjectStore, log)
	if err != nil {
		return nil, err
	}
	if create {
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}
