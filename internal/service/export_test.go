package service

import (
	"context"
	"time"
)

// SetSleep replaces the retry backoff sleeper and returns a restore func.
func SetSleep(f func(context.Context, time.Duration) error) func() {
	old := sleep
	sleep = f
	return func() { sleep = old }
}
