package cli

import (
	"context"
	"fmt"
)

func (a *app) run(ctx context.Context, s *session) error {
	res, err := s.withConnection(ctx, s.eng.Apply)
	if err != nil {
		return err
	}

	if res.Count == 0 {
		fmt.Fprintln(a.stdout, "Migrations are up to date.")

		return nil
	}

	fmt.Fprintf(a.stdout, "\nApply complete: %d change set(s) applied.\n", res.Count)

	return nil
}

func (a *app) verify(ctx context.Context, s *session) error {
	if _, err := s.withConnection(ctx, s.eng.VerifyUpToDate); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "Migrations are up to date.")

	return nil
}
