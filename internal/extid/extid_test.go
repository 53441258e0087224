package extid

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAdd_PrependsBlank(t *testing.T) {
	l := NewList(Entry{Type: "doi", Value: "10.1/x"})
	l.Add()

	require.Equal(t, 2, l.Len())
	first, err := l.At(0)
	require.NoError(t, err)
	require.True(t, first.IsBlank())
}

func TestAddAddDelete_LeavesFirstAdded(t *testing.T) {
	l := NewList()
	l.Add()
	require.NoError(t, l.Set(0, Entry{Type: "doi", Value: "E1"}))
	l.Add()
	require.NoError(t, l.Set(0, Entry{Type: "doi", Value: "E2"}))

	deleted, err := l.Delete(0, Yes)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, []Entry{{Type: "doi", Value: "E1"}}, l.Entries())
}

func TestDelete_CancelIsNoop(t *testing.T) {
	l := NewList(Entry{Value: "a"}, Entry{Value: "b"})

	var prompt string
	deleted, err := l.Delete(1, ConfirmFunc(func(p string) bool {
		prompt = p
		return false
	}))
	require.NoError(t, err)
	require.False(t, deleted)
	require.Equal(t, 2, l.Len())
	require.Contains(t, prompt, `"b"`)

	deleted, err = l.Delete(0, nil)
	require.NoError(t, err)
	require.False(t, deleted)
	require.Equal(t, 2, l.Len())
}

func TestDelete_ShiftsDown(t *testing.T) {
	l := NewList(Entry{Value: "a"}, Entry{Value: "b"}, Entry{Value: "c"})

	_, err := l.Delete(1, Yes)
	require.NoError(t, err)

	c, err := l.At(1)
	require.NoError(t, err)
	require.Equal(t, "c", c.Value)
}

func TestOutOfRange(t *testing.T) {
	l := NewList(Entry{Value: "a"})

	_, err := l.Delete(1, Yes)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
	_, err = l.Delete(-1, Yes)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
	require.ErrorIs(t, l.Set(3, Entry{}), ErrPositionOutOfRange)
	_, err = l.At(1)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestConfirmerNotAskedOutOfRange(t *testing.T) {
	asked := false
	_, err := NewList().Delete(0, ConfirmFunc(func(string) bool {
		asked = true
		return true
	}))
	require.ErrorIs(t, err, ErrPositionOutOfRange)
	require.False(t, asked)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	l := NewList(Entry{Value: "a"})
	entries := l.Entries()
	entries[0].Value = "changed"

	e, _ := l.At(0)
	require.Equal(t, "a", e.Value)
	require.Equal(t, []Entry{}, NewList().Entries())
}

func TestMarshalUnmarshal(t *testing.T) {
	l := NewList(
		Entry{Type: "doi", Value: "10.1/x", URL: "https://doi.org/10.1/x", Relationship: RelationshipSelf},
		Entry{},
	)
	data, err := l.Marshal()
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, l.Entries(), back.Entries())

	empty, err := NewList().Marshal()
	require.NoError(t, err)
	require.JSONEq(t, "[]", string(empty))

	blank, err := Unmarshal([]byte("  "))
	require.NoError(t, err)
	require.Zero(t, blank.Len())

	_, err = Unmarshal([]byte(`{"type":"doi"}`))
	require.Error(t, err)
}

// TestList_MatchesModel drives random add/set/delete sequences against a
// plain slice model with head insertion and positional removal.
func TestList_MatchesModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := NewList()
		var model []Entry
		counter := 0

		t.Repeat(map[string]func(*rapid.T){
			"add": func(t *rapid.T) {
				l.Add()
				model = append([]Entry{{}}, model...)
			},
			"set": func(t *rapid.T) {
				if len(model) == 0 {
					t.Skip("empty")
				}
				pos := rapid.IntRange(0, len(model)-1).Draw(t, "pos")
				counter++
				e := Entry{Type: "doi", Value: string(rune('a' + counter%26))}
				if err := l.Set(pos, e); err != nil {
					t.Fatal(err)
				}
				model[pos] = e
			},
			"delete": func(t *rapid.T) {
				if len(model) == 0 {
					t.Skip("empty")
				}
				pos := rapid.IntRange(0, len(model)-1).Draw(t, "pos")
				confirm := rapid.Bool().Draw(t, "confirm")
				c := No
				if confirm {
					c = Yes
				}
				deleted, err := l.Delete(pos, c)
				if err != nil {
					t.Fatal(err)
				}
				if deleted != confirm {
					t.Fatalf("deleted=%v with confirm=%v", deleted, confirm)
				}
				if confirm {
					model = append(model[:pos:pos], model[pos+1:]...)
				}
			},
			"": func(t *rapid.T) {
				got := l.Entries()
				if len(got) != len(model) {
					t.Fatalf("len %d, model %d", len(got), len(model))
				}
				for i := range model {
					if got[i] != model[i] {
						t.Fatalf("position %d: %+v, model %+v", i, got[i], model[i])
					}
				}
			},
		})
	})
}
