package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	dErrors "certwallet/pkg/domain-errors"
)

// LoadFailure is a stored document that could not be loaded.
type LoadFailure struct {
	Filename string
	Err      error
}

// LoadReport summarizes a Load.
type LoadReport struct {
	Loaded   int
	Failures []LoadFailure
}

type loadResult struct {
	entry Entry
	err   error
}

// Load replaces the in-memory list with every parseable document in the store,
// in filename order. Documents that fail to read or parse are reported, not
// dropped silently; revocation is not consulted. A stored credential whose ID
// is already loaded from an earlier filename is reported as a conflict.
//
// Imports and deletes that complete while Load runs are preserved: an entry
// added to the list during Load is kept, and one removed during Load stays removed.
//
// Errors: only when the store cannot be listed or ctx is cancelled. The loaded
// list is left unchanged in that case.
func (s *Service) Load(ctx context.Context) (LoadReport, error) {
	before := s.filenames()
	names, err := s.store.List(ctx)
	if err != nil {
		return LoadReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}

	results := make([]loadResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.loadConcurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.loadOne(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LoadReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return LoadReport{}, err
	}

	var report LoadReport
	list := make([]Entry, 0, len(names))
	seen := make(map[string]string, len(names))
	for i, res := range results {
		if res.err != nil {
			report.Failures = append(report.Failures, LoadFailure{Filename: names[i], Err: res.err})
			continue
		}
		id := res.entry.Credential.ID()
		if first, ok := seen[id]; ok {
			report.Failures = append(report.Failures, LoadFailure{
				Filename: names[i],
				Err:      dErrors.New(dErrors.CodeConflict, "credential "+id+" is already loaded from "+first),
			})
			continue
		}
		seen[id] = names[i]
		list = append(list, res.entry)
	}

	s.mu.Lock()
	s.list = s.mergeConcurrent(before, list, seen)
	report.Loaded = len(s.list)
	s.reportSize()
	s.mu.Unlock()

	for _, f := range report.Failures {
		if s.metrics != nil {
			s.metrics.RecordLoadFailure()
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "certificate not loaded",
				"filename", f.Filename,
				"error", f.Err,
			)
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "wallet loaded",
			"loaded", report.Loaded,
			"failed", len(report.Failures),
		)
	}
	return report, nil
}

func (s *Service) filenames() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]struct{}, len(s.list))
	for _, e := range s.list {
		names[e.Filename] = struct{}{}
	}
	return names
}

// mergeConcurrent reconciles a freshly loaded list with changes made to s.list
// since before was taken. Must be called with s.mu held.
func (s *Service) mergeConcurrent(before map[string]struct{}, loaded []Entry, seen map[string]string) []Entry {
	current := make(map[string]struct{}, len(s.list))
	for _, e := range s.list {
		current[e.Filename] = struct{}{}
	}
	merged := loaded[:0]
	for _, e := range loaded {
		_, was := before[e.Filename]
		_, is := current[e.Filename]
		if was && !is {
			delete(seen, e.Credential.ID())
			continue
		}
		merged = append(merged, e)
	}
	for _, e := range s.list {
		if _, was := before[e.Filename]; was {
			continue
		}
		if _, dup := seen[e.Credential.ID()]; dup {
			continue
		}
		seen[e.Credential.ID()] = e.Filename
		merged = append(merged, e)
	}
	return merged
}

func (s *Service) loadOne(ctx context.Context, filename string) loadResult {
	raw, err := s.store.Read(ctx, filename)
	if err != nil {
		return loadResult{err: err}
	}
	cred, err := s.parser.ParseCredentialBytes(ctx, raw)
	if err != nil {
		return loadResult{err: err}
	}
	return loadResult{entry: Entry{Filename: filename, Credential: cred}}
}
