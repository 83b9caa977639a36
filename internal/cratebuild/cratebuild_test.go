package cratebuild_test

import (
	"testing"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/cratebuild"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/medialib"
	. "github.com/onsi/gomega"
)

func TestBuildProducesHierarchicalNamesWithDelimiter(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := &medialib.MediaNode{
		Tracks: []string{"/Music/root.mp3"},
		Children: []*medialib.MediaNode{
			{
				Name:   "Genre",
				Tracks: []string{"/Music/Genre/a.mp3"},
				Children: []*medialib.MediaNode{
					{Name: "SubGenre", Tracks: []string{"/Music/Genre/SubGenre/b.mp3"}},
				},
			},
		},
	}

	built, stats := cratebuild.Build(tree, "Current", nil, nil)

	names := make([]string, len(built))
	for i, b := range built {
		names[i] = b.Name
	}

	g.Expect(names).To(Equal([]string{"Current", "Current%%Genre", "Current%%Genre%%SubGenre"}))
	g.Expect(stats.CratesBuilt).To(Equal(3))
	g.Expect(stats.TracksAdded).To(Equal(3))
}

func TestBuildDoesNotPropagateDescendantTracksUpward(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := &medialib.MediaNode{
		Children: []*medialib.MediaNode{
			{Name: "Genre", Tracks: []string{"/Music/Genre/a.mp3"}},
		},
	}

	built, _ := cratebuild.Build(tree, "Current", nil, nil)

	g.Expect(built[0].Crate.TrackCount()).To(Equal(0))
	g.Expect(built[1].Crate.TrackCount()).To(Equal(1))
}

func TestDepthZeroTreeProducesOnlyRootCrate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := &medialib.MediaNode{Tracks: []string{"/Music/a.mp3", "/Music/b.mp3"}}

	built, stats := cratebuild.Build(tree, "Current", nil, nil)

	g.Expect(built).To(HaveLen(1))
	g.Expect(built[0].Name).To(Equal("Current"))
	g.Expect(stats.CratesBuilt).To(Equal(1))
}

type stubDedup struct {
	seen map[string]bool
}

func (s stubDedup) Contains(trackPath, _ string) bool {
	return s.seen[trackPath]
}

func TestBuildCountsSkippedExistingViaDedup(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tree := &medialib.MediaNode{Tracks: []string{"/Music/a.mp3", "/Music/b.mp3"}}
	dedup := stubDedup{seen: map[string]bool{"/Music/a.mp3": true}}

	built, stats := cratebuild.Build(tree, "Current", dedup, nil)

	g.Expect(stats.SkippedExisting).To(Equal(1))
	g.Expect(stats.TracksAdded).To(Equal(1))
	g.Expect(built[0].Crate.TrackCount()).To(Equal(1))
}
