package service

import (
	"context"
	"slices"

	dErrors "certwallet/pkg/domain-errors"
)

// Delete removes the credential from the loaded list and then from the store.
// If the store refuses, the entry is restored at its original position and the
// store error is returned with its code (not_found when the file is missing).
func (s *Service) Delete(ctx context.Context, filename string) error {
	s.locks.Lock(filename)
	defer s.locks.Unlock(filename)

	s.mu.Lock()
	idx := s.indexOf(filename)
	if idx < 0 {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	entry := s.list[idx]
	s.list = slices.Delete(slices.Clone(s.list), idx, idx+1)
	s.reportSize()
	s.mu.Unlock()

	if err := s.store.Delete(ctx, filename); err != nil {
		s.mu.Lock()
		s.list = slices.Insert(s.list, min(idx, len(s.list)), entry)
		s.reportSize()
		s.mu.Unlock()

		if s.logger != nil {
			s.logger.ErrorContext(ctx, "certificate delete rolled back",
				"filename", filename,
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete certificate")
	}
	return nil
}
