package locator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

func sampleTree() []types.UIElement {
	return []types.UIElement{
		{Index: 0, ClassName: "android.widget.Button", ResourceID: "com.app:id/login", Text: "Log in", Clickable: true, Enabled: true, Bounds: types.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 40}},
		{Index: 1, ClassName: "android.widget.Button", ResourceID: "com.app:id/cancel", Text: "Cancel", Clickable: true, Enabled: false, Bounds: types.Bounds{X1: 0, Y1: 50, X2: 100, Y2: 90}},
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "element.json")
	s := NewStore(path)
	require.NoError(t, s.Load())

	name, err := s.AddFromTree(sampleTree()[0])
	require.NoError(t, err)
	require.NoError(t, s.Save())

	s2 := NewStore(path)
	require.NoError(t, s2.Load())
	d, ok, err := s2.Get(name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.TagTree, d.Type)
}

func TestStoreUniqueNameSuffix(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "element.json"))
	require.NoError(t, s.Load())

	e1 := sampleTree()[0]
	e2 := e1
	e2.Index = 2

	n1, err := s.AddFromTree(e1)
	require.NoError(t, err)
	n2, err := s.AddFromTree(e2)
	require.NoError(t, err)
	require.NotEqual(t, n1, n2)
	require.Equal(t, n1+"_2", n2)
}

func TestResolveStrategyHintStrictExact(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "element.json"))
	require.NoError(t, s.Load())
	name, err := s.AddFromTree(sampleTree()[0])
	require.NoError(t, err)

	r := NewResolver(s, "")
	pt, err := r.Resolve(name, types.StrategyResourceID, "", sampleTree())
	require.NoError(t, err)
	require.Equal(t, 50, pt.X)
	require.Equal(t, 20, pt.Y)
}

func TestResolveStrategyHintMissingAttributeIsConfigError(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "element.json"))
	require.NoError(t, s.Load())

	// descriptor with no resource_id
	noRid := sampleTree()[0]
	noRid.ResourceID = ""
	name, err := s.AddFromTree(noRid)
	require.NoError(t, err)

	r := NewResolver(s, "")
	_, err = r.Resolve(name, types.StrategyResourceID, "", sampleTree())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestResolveFullExactMatchRequiresAllFields(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "element.json"))
	require.NoError(t, s.Load())
	name, err := s.AddFromTree(sampleTree()[1]) // enabled=false
	require.NoError(t, err)

	tree := sampleTree()
	tree[1].Enabled = true // live element now disagrees on `enabled`

	r := NewResolver(s, "")
	_, err = r.Resolve(name, "", "", tree)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveTextCaseInsensitiveContains(t *testing.T) {
	r := NewResolver(NewStore(""), "")
	pt, err := r.ResolveText("LOG", sampleTree())
	require.NoError(t, err)
	require.Equal(t, 50, pt.X)
}

func TestResolveTextNotFound(t *testing.T) {
	r := NewResolver(NewStore(""), "")
	_, err := r.ResolveText("nonexistent", sampleTree())
	require.ErrorIs(t, err, ErrNotFound)
}
