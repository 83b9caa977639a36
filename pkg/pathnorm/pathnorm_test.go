package pathnorm_test

import (
	"testing"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"
	. "github.com/onsi/gomega"
)

func TestCanonicalStripsWindowsDrive(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(pathnorm.Canonical(`C:/Music/A.mp3`)).To(Equal("Music/A.mp3"))
	g.Expect(pathnorm.Canonical(`C:\Music\A.mp3`)).To(Equal("Music/A.mp3"))
}

func TestCanonicalStripsVolumesRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(pathnorm.Canonical("/Volumes/DJ Drive/Music/A.mp3")).To(Equal("Music/A.mp3"))
}

func TestCanonicalLeavesRelativePathAlone(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(pathnorm.Canonical("Music/C.mp3")).To(Equal("Music/C.mp3"))
}

func TestCanonicalDoesNotChangeUnicodeForm(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	decomposed := "Music/e\u0301cole.mp3" // e + combining acute accent (NFD)
	g.Expect(pathnorm.Canonical(decomposed)).To(Equal(decomposed))
}

func TestNFCLowerFilenameCollidesAcrossNormalizationForms(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	nfc := "/Volumes/V/Music/\u00e9cole.MP3"      // precomposed é
	nfd := `C:/Music/e` + "\u0301" + `cole.mp3` // decomposed é, different case/prefix

	g.Expect(pathnorm.NFCLowerFilename(nfc)).To(Equal(pathnorm.NFCLowerFilename(nfd)))
}

func TestEquivalentIgnoresPrefixAndSlashDirection(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(pathnorm.Equivalent(`/Volumes/V/Music/A.mp3`, `Music/A.mp3`)).To(BeTrue())
	g.Expect(pathnorm.Equivalent(`C:\Music\A.mp3`, "Music/A.mp3")).To(BeTrue())
	g.Expect(pathnorm.Equivalent("Music/A.mp3", "Music/B.mp3")).To(BeFalse())
}

func TestNFCLowerPathStripsPrefixAndNormalizes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	nfd := `C:/Music/E` + "\u0301" + `COLE.MP3`
	g.Expect(pathnorm.NFCLowerPath(nfd)).To(Equal("music/\u00e9cole.mp3"))
}

func TestFilenameNoNormalization(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(pathnorm.Filename("Music/Sub/Track.MP3")).To(Equal("Track.MP3"))
	g.Expect(pathnorm.Filename(`Music\Sub\Track.MP3`)).To(Equal("Track.MP3"))
	g.Expect(pathnorm.Filename("Track.MP3")).To(Equal("Track.MP3"))
}
