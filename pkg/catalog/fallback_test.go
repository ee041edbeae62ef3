package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fallbackService(client *fakeClient) *Service {
	return newTestService(client, &fakeExecutor{}, Options{FallbackEnabled: true})
}

func paths(entries []ListingEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.PathOrName
	}
	return out
}

func TestFallbackRootAndZone(t *testing.T) {
	tests := []struct {
		name       string
		parent     string
		wantPath   string
		wantParent string
	}{
		{name: "root", parent: "/", wantPath: "/zoneA", wantParent: "/"},
		{name: "zone", parent: "/zoneA", wantPath: "/zoneA/home", wantParent: "/zoneA"},
		{name: "zone with trailing slash", parent: "/zoneA/", wantPath: "/zoneA/home", wantParent: "/zoneA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			entries, err := fallbackService(client).FallbackRootChildren(context.Background(), tt.parent)
			require.NoError(t, err)

			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantPath, entries[0].PathOrName)
			assert.Equal(t, tt.wantParent, entries[0].ParentPath)
			assert.Equal(t, ObjectTypeCollection, entries[0].ObjectType)
			assert.Equal(t, KindNormal, entries[0].SpecialKind)
			assert.Equal(t, "zoneA", entries[0].OwnerZone)
			assert.Equal(t, 1, entries[0].Count)
			assert.True(t, entries[0].LastResult)
			assert.Empty(t, client.statCalls)
		})
	}
}

func TestFallbackHome(t *testing.T) {
	tests := []struct {
		name   string
		exists []string
		want   []string
	}{
		{name: "public and home", exists: []string{"/zoneA/home/public", "/zoneA/home/alice"}, want: []string{"/zoneA/home/public", "/zoneA/home/alice"}},
		{name: "public only", exists: []string{"/zoneA/home/public"}, want: []string{"/zoneA/home/public"}},
		{name: "home only", exists: []string{"/zoneA/home/alice"}, want: []string{"/zoneA/home/alice"}},
		{name: "neither", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			for _, p := range tt.exists {
				client.stats[p] = collectionStat("rods")
			}

			entries, err := fallbackService(client).FallbackRootChildren(context.Background(), "/zoneA/home")
			require.NoError(t, err)

			assert.Equal(t, tt.want, paths(entries))
			assert.Equal(t, []string{"/zoneA/home/public", "/zoneA/home/alice"}, client.statCalls)
			for i, e := range entries {
				assert.Equal(t, i+1, e.Count)
				assert.Equal(t, i == len(entries)-1, e.LastResult)
				assert.Equal(t, "/zoneA/home", e.ParentPath)
				assert.Equal(t, "rods", e.OwnerName)
			}
		})
	}
}

func TestFallbackPublic(t *testing.T) {
	client := newFakeClient()
	client.stats["/zoneA/home/alice"] = collectionStat("alice")

	entries, err := fallbackService(client).FallbackRootChildren(context.Background(), "/zoneA/home/public")
	require.NoError(t, err)

	assert.Equal(t, []string{"/zoneA/home/alice"}, paths(entries))
	assert.Equal(t, []string{"/zoneA/home/alice"}, client.statCalls)
	assert.True(t, entries[0].LastResult)

	client = newFakeClient()
	entries, err = fallbackService(client).FallbackRootChildren(context.Background(), "/zoneA/home/public")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestFallbackNotApplicable(t *testing.T) {
	tests := []struct {
		name string
		path string
		opts Options
	}{
		{name: "deep path", path: "/zoneA/home/alice/projects", opts: Options{FallbackEnabled: true}},
		{name: "other zone", path: "/zoneB", opts: Options{FallbackEnabled: true}},
		{name: "disabled", path: "/", opts: Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			_, err := newTestService(client, &fakeExecutor{}, tt.opts).FallbackRootChildren(context.Background(), tt.path)
			require.Error(t, err)
			assert.True(t, IsNotFound(err))
			assert.Empty(t, client.statCalls)
		})
	}
}

func TestFallbackProbeError(t *testing.T) {
	client := newFakeClient()
	boom := errors.New("broken pipe")
	client.statErrs["/zoneA/home/public"] = boom

	_, err := fallbackService(client).FallbackRootChildren(context.Background(), "/zoneA/home")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrTransport))
}
