package session_test

import (
	"testing"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/session"
	. "github.com/onsi/gomega"
)

func writeHeader(w *binio.Writer, version string) error {
	w.WriteASCII("vrsn")
	w.WriteByte(0)
	w.WriteByte(0)

	versionLen, err := binio.UTF16BELen(version)
	if err != nil {
		return err
	}

	w.WriteUint16(uint16(versionLen)) //nolint:gosec // fixture-only, small value

	return w.WriteUTF16BE(version)
}

func writeAdatField(t *testing.T, w *binio.Writer, id uint32, payload []byte) {
	t.Helper()

	w.WriteUint32(id)
	w.WriteUint32(uint32(len(payload))) //nolint:gosec // fixture-only, small value
	w.WriteRaw(payload)
}

func writeWrapper(t *testing.T, w *binio.Writer, tag string, fields func(*binio.Writer)) {
	t.Helper()

	adatW := binio.NewWriter()
	fields(adatW)
	adatPayload := adatW.Bytes()

	inner := binio.NewWriter()
	inner.WriteASCII("adat")
	inner.WriteUint32(uint32(len(adatPayload))) //nolint:gosec // fixture-only, small value
	inner.WriteRaw(adatPayload)
	innerPayload := inner.Bytes()

	w.WriteASCII(tag)
	w.WriteUint32(uint32(len(innerPayload))) //nolint:gosec // fixture-only, small value
	w.WriteRaw(innerPayload)
}

func uint32BE(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} //nolint:mnd // big-endian bytes
}

func buildSession(t *testing.T, durationSeconds uint32, filePath string, trailingNUL int) []byte {
	t.Helper()

	w := binio.NewWriter()
	if err := writeHeader(w, "2.0/Serato Scratch LIVE Session"); err != nil {
		t.Fatalf("writing header: %v", err)
	}

	writeWrapper(t, w, "oses", func(adatW *binio.Writer) {
		writeAdatField(t, adatW, session.FieldDuration, uint32BE(durationSeconds))
	})

	pathBytes, err := binio.EncodeUTF16BE(filePath)
	if err != nil {
		t.Fatalf("encoding path: %v", err)
	}

	for range trailingNUL {
		pathBytes = append(pathBytes, 0, 0)
	}

	writeWrapper(t, w, "oent", func(adatW *binio.Writer) {
		writeAdatField(t, adatW, session.FieldFilePath, pathBytes)
	})

	return w.Bytes()
}

func TestParseReadsSummaryDurationAndEntryPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	data := buildSession(t, 45, "/Volumes/V/X.mp3", 2)

	s, err := session.Parse(data)
	g.Expect(err).NotTo(HaveOccurred())

	d, ok := s.Duration()
	g.Expect(ok).To(BeTrue())
	g.Expect(d).To(Equal(uint32(45)))

	g.Expect(s.Entries).To(HaveLen(1))

	path, ok := s.Entries[0].FilePath()
	g.Expect(ok).To(BeTrue())
	g.Expect(path).To(Equal("/Volumes/V/X.mp3"))
}

func TestShouldDeleteComparesAgainstThreshold(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	short, err := session.Parse(buildSession(t, 10, "/Volumes/V/X.mp3", 0))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(short.ShouldDelete(30)).To(BeTrue())

	long, err := session.Parse(buildSession(t, 120, "/Volumes/V/X.mp3", 0))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(long.ShouldDelete(30)).To(BeFalse())
}

func TestUpdatePathPreservesTrailingNULPadding(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	data := buildSession(t, 45, "/Volumes/V/X.mp3", 2)

	fixed, changed, err := session.UpdatePath(data, "/Volumes/V/X.mp3", "/Volumes/V/Y.mp3")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(changed).To(Equal(1))
	g.Expect(len(fixed)).To(Equal(len(data)))

	reparsed, err := session.Parse(fixed)
	g.Expect(err).NotTo(HaveOccurred())

	path, ok := reparsed.Entries[0].FilePath()
	g.Expect(ok).To(BeTrue())
	g.Expect(path).To(Equal("/Volumes/V/Y.mp3"))
}

func TestUpdatePathNoMatchLeavesBufferUnchanged(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	data := buildSession(t, 45, "/Volumes/V/X.mp3", 0)

	fixed, changed, err := session.UpdatePath(data, "/Volumes/V/Other.mp3", "/Volumes/V/Y.mp3")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(changed).To(Equal(0))
	g.Expect(fixed).To(Equal(data))
}

func buildHistoryDB(t *testing.T, sessionPaths []string) []byte {
	t.Helper()

	w := binio.NewWriter()
	if err := writeHeader(w, "2.0/Serato Scratch LIVE Database"); err != nil {
		t.Fatalf("writing header: %v", err)
	}

	ocolPayload := []byte("column-defs")
	w.WriteASCII("ocol")
	w.WriteUint32(uint32(len(ocolPayload))) //nolint:gosec // fixture-only, small value
	w.WriteRaw(ocolPayload)

	for _, p := range sessionPaths {
		pathBytes, err := binio.EncodeUTF16BE(p)
		if err != nil {
			t.Fatalf("encoding path: %v", err)
		}

		writeWrapper(t, w, "oses", func(adatW *binio.Writer) {
			writeAdatField(t, adatW, session.FieldFilePath, pathBytes)
		})
	}

	return w.Bytes()
}

func TestScrubSessionsRemovesOnlyDeletedPathsAndKeepsOcolIntact(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	data := buildHistoryDB(t, []string{
		"/Library/History/2024-01-01.session",
		"/Library/History/2024-01-02.session",
	})

	scrubbed, removed, err := session.ScrubSessions(data, map[string]bool{
		"/Library/History/2024-01-01.session": true,
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(removed).To(Equal(1))
	g.Expect(len(scrubbed)).To(BeNumerically("<", len(data)))

	kept := buildHistoryDB(t, []string{"/Library/History/2024-01-02.session"})
	g.Expect(scrubbed).To(Equal(kept))
}

func TestScrubSessionsNoMatchLeavesBufferUnchanged(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	data := buildHistoryDB(t, []string{"/Library/History/2024-01-01.session"})

	scrubbed, removed, err := session.ScrubSessions(data, map[string]bool{
		"/Library/History/does-not-exist.session": true,
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(removed).To(Equal(0))
	g.Expect(scrubbed).To(Equal(data))
}
