package rwlock

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// ProtectRead runs body while holding l for reading.
// See the package-level ProtectRead for the release guarantees.
func (l *Lock) ProtectRead(ctx context.Context, body func(ctx context.Context) error) error {
	_, err := protect(ctx, l, Read, discardValue(body))
	return err
}

// ProtectWrite runs body while holding l for writing.
// See the package-level ProtectWrite for the release guarantees.
func (l *Lock) ProtectWrite(ctx context.Context, body func(ctx context.Context) error) error {
	_, err := protect(ctx, l, Write, discardValue(body))
	return err
}

// ProtectRead acquires l for reading, runs body and releases l on every exit
// path, including a panic in body. The value and error of body are returned
// unchanged. If acquisition fails body is not run.
func ProtectRead[T any](ctx context.Context, l *Lock, body func(ctx context.Context) (T, error)) (T, error) {
	return protect(ctx, l, Read, body)
}

// ProtectWrite is ProtectRead for an exclusive hold.
func ProtectWrite[T any](ctx context.Context, l *Lock, body func(ctx context.Context) (T, error)) (T, error) {
	return protect(ctx, l, Write, body)
}

func protect[T any](ctx context.Context, l *Lock, mode Mode, body func(ctx context.Context) (T, error)) (res T, err error) {
	if err := l.acquire(ctx, mode); err != nil {
		return res, err
	}
	defer func() {
		// fails only if body released the hold itself
		if unlockErr := l.Unlock(); unlockErr != nil {
			if err == nil {
				err = unlockErr
			} else {
				err = multierror.Append(err, unlockErr)
			}
		}
	}()
	return body(ctx)
}

func discardValue(body func(ctx context.Context) error) func(ctx context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, body(ctx)
	}
}
