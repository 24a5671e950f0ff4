package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id     uint32
	closed atomic.Bool

	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSession) ID() uint32 { return f.id }

func (f *fakeSession) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeSession) Close() error {
	f.closed.Store(true)
	return nil
}

func TestRegistry_Register(t *testing.T) {
	t.Run("binds username to session", func(t *testing.T) {
		r := New()
		sess := &fakeSession{id: 1}

		require.NoError(t, r.Register(sess, "Alice"))

		got, ok := r.Lookup("Alice")
		require.True(t, ok)
		assert.Equal(t, uint32(1), got.ID())
		assert.Equal(t, "Alice", r.Username(1))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("rejects reserved sigil", func(t *testing.T) {
		r := New()
		err := r.Register(&fakeSession{id: 1}, "@Alice")
		assert.ErrorIs(t, err, ErrUsernameRejected)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("rejects empty username", func(t *testing.T) {
		r := New()
		err := r.Register(&fakeSession{id: 1}, "")
		assert.ErrorIs(t, err, ErrUsernameRejected)
	})

	t.Run("duplicate name rebinds to newest session", func(t *testing.T) {
		r := New()
		first := &fakeSession{id: 1}
		second := &fakeSession{id: 2}

		require.NoError(t, r.Register(first, "Alice"))
		require.NoError(t, r.Register(second, "Alice"))

		got, ok := r.Lookup("Alice")
		require.True(t, ok)
		assert.Equal(t, uint32(2), got.ID())
	})
}

func TestRegistry_Drop(t *testing.T) {
	t.Run("removes binding, clears mute, closes transport", func(t *testing.T) {
		r := New("Itay")
		sess := &fakeSession{id: 1}
		require.NoError(t, r.Register(sess, "Alice"))
		r.Mute("Alice")

		username := r.Drop(sess)

		assert.Equal(t, "Alice", username)
		_, ok := r.Lookup("Alice")
		assert.False(t, ok)
		assert.False(t, r.IsMuted("Alice"))
		assert.True(t, sess.closed.Load())
	})

	t.Run("never-registered session only closes", func(t *testing.T) {
		r := New()
		sess := &fakeSession{id: 7}

		assert.Equal(t, "", r.Drop(sess))
		assert.True(t, sess.closed.Load())
	})

	t.Run("dropping a stale session keeps the rebound name", func(t *testing.T) {
		r := New()
		old := &fakeSession{id: 1}
		current := &fakeSession{id: 2}
		require.NoError(t, r.Register(old, "Alice"))
		require.NoError(t, r.Register(current, "Alice"))

		r.Drop(old)

		got, ok := r.Lookup("Alice")
		require.True(t, ok)
		assert.Equal(t, uint32(2), got.ID())
	})

	t.Run("role survives the drop", func(t *testing.T) {
		r := New()
		sess := &fakeSession{id: 1}
		require.NoError(t, r.Register(sess, "Bob"))
		r.Promote("Bob")

		r.Drop(sess)

		assert.True(t, r.IsManager("Bob"))
	})
}

func TestRegistry_Promote(t *testing.T) {
	t.Run("seeded managers hold the role", func(t *testing.T) {
		r := New("Itay")
		assert.True(t, r.IsManager("Itay"))
		assert.False(t, r.IsManager("Alice"))
	})

	t.Run("promote is idempotent", func(t *testing.T) {
		r := New()
		assert.True(t, r.Promote("Bob"))
		assert.False(t, r.Promote("Bob"))
		assert.Equal(t, []string{"Bob"}, r.ManagerNames())
	})

	t.Run("manager names are a sorted snapshot", func(t *testing.T) {
		r := New("Itay")
		r.Promote("Bob")
		r.Promote("Alice")
		assert.Equal(t, []string{"Alice", "Bob", "Itay"}, r.ManagerNames())
	})

	t.Run("concurrent promotes grant exactly one entry", func(t *testing.T) {
		r := New()
		var granted atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if r.Promote("Bob") {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), granted.Load())
		assert.Equal(t, []string{"Bob"}, r.ManagerNames())
	})
}

func TestRegistry_Mute(t *testing.T) {
	t.Run("mute is idempotent", func(t *testing.T) {
		r := New()
		assert.True(t, r.Mute("Alice"))
		assert.False(t, r.Mute("Alice"))
		assert.True(t, r.IsMuted("Alice"))
	})

	t.Run("mute applies to usernames not in the room", func(t *testing.T) {
		r := New()
		assert.True(t, r.Mute("Ghost"))
		assert.True(t, r.IsMuted("Ghost"))
	})
}

func TestRegistry_Sessions(t *testing.T) {
	r := New()
	a := &fakeSession{id: 1}
	b := &fakeSession{id: 2}
	require.NoError(t, r.Register(a, "Alice"))
	require.NoError(t, r.Register(b, "Bob"))

	snapshot := r.Sessions()
	assert.Len(t, snapshot, 2)

	// Mutating the registry after the snapshot does not affect it.
	r.Drop(a)
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 1, r.Len())
}
