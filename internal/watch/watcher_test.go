package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/tidydl/internal/clock"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &clock.RealClock{}, Options{}, nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = New([]string{file}, &clock.RealClock{}, Options{}, nil)
	assert.Error(t, err)

	_, err = New([]string{filepath.Join(t.TempDir(), "missing")}, &clock.RealClock{}, Options{}, nil)
	assert.Error(t, err)
}

func TestWatcher_RunsOnceNewDirectorySettles(t *testing.T) {
	root := t.TempDir()

	var mu sync.Mutex
	var runs []string
	done := make(chan struct{}, 1)
	run := func(ctx context.Context, path string) error {
		mu.Lock()
		runs = append(runs, path)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}

	w, err := New([]string{root}, &clock.RealClock{}, Options{
		Settle:  100 * time.Millisecond,
		MaxWait: 5 * time.Second,
		Tick:    20 * time.Millisecond,
	}, run)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// files created at the root are not new directories
	require.NoError(t, os.WriteFile(filepath.Join(root, "loose.txt"), []byte("x"), 0644))

	download := filepath.Join(root, "show")
	require.NoError(t, os.Mkdir(download, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(download, "ep1.mkv"), []byte("video"), 0644))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("cleanup was not triggered")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{download}, runs)
}

func TestWatcher_TriggersDespiteContinuousActivity(t *testing.T) {
	root := t.TempDir()
	download := filepath.Join(root, "finished")

	done := make(chan string, 1)
	run := func(ctx context.Context, path string) error {
		select {
		case done <- path:
		default:
		}
		return nil
	}

	w, err := New([]string{root}, &clock.RealClock{}, Options{
		Settle:  100 * time.Millisecond,
		MaxWait: 300 * time.Millisecond,
		Tick:    100 * time.Millisecond,
	}, run)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.NoError(t, os.Mkdir(download, 0755))

	// Events every 10ms, both loose in the root and inside the directory,
	// so the quiet period is never reached and only maxWait can fire.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-time.After(10 * time.Millisecond):
			}
			dir := root
			if i%2 == 1 {
				dir = download
			}
			_ = os.WriteFile(filepath.Join(dir, fmt.Sprintf("part-%d", i%8)), []byte{byte(i)}, 0644)
		}
	}()

	var got string
	select {
	case got = <-done:
	case <-time.After(5 * time.Second):
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, download, got, "directory under continuous activity was not cleaned within maxWait (pending=%d)", w.Pending())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_ArmsOneTickAtATime(t *testing.T) {
	root := t.TempDir()
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	w, err := New([]string{root}, clk, Options{Settle: time.Minute, Tick: time.Second}, func(context.Context, string) error {
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return clk.Waiters() == 1 }, 5*time.Second, 5*time.Millisecond)

	for i := 0; i < 20; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, fmt.Sprintf("f%d", i)), []byte("x"), 0644))
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, clk.Waiters(), "events must not arm extra ticks")

	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return clk.Waiters() == 1 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
