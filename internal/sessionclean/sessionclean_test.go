package sessionclean_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/sessionclean"
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

func buildSessionFile(t *testing.T, durationSeconds uint32) []byte {
	t.Helper()

	w := binio.NewWriter()
	if err := writeHeader(w, "2.0/Serato Scratch LIVE Session"); err != nil {
		t.Fatalf("writing header: %v", err)
	}

	writeWrapper(t, w, "oses", func(adatW *binio.Writer) {
		writeAdatField(t, adatW, session.FieldDuration, uint32BE(durationSeconds))
	})

	return w.Bytes()
}

func buildHistoryDatabase(t *testing.T, sessionPaths []string) []byte {
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

func TestRunDeletesShortSessionsAndScrubsHistoryDatabase(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	library := t.TempDir()
	sessionsDir := filepath.Join(library, "History", "Sessions")
	g.Expect(os.MkdirAll(sessionsDir, 0o750)).To(Succeed())

	shortPath := filepath.Join(sessionsDir, "short.session")
	longPath := filepath.Join(sessionsDir, "long.session")

	g.Expect(os.WriteFile(shortPath, buildSessionFile(t, 10), 0o600)).To(Succeed())
	g.Expect(os.WriteFile(longPath, buildSessionFile(t, 120), 0o600)).To(Succeed())

	dbPath := filepath.Join(library, "History", "history.database")
	g.Expect(os.WriteFile(dbPath, buildHistoryDatabase(t, []string{shortPath, longPath}), 0o600)).To(Succeed())

	result, err := sessionclean.Run(library, 30, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.SessionsDeleted).To(Equal(1))
	g.Expect(result.HistoryScrubbed).To(Equal(1))

	g.Expect(shortPath).NotTo(BeAnExistingFile())
	g.Expect(longPath).To(BeAnExistingFile())

	scrubbedBytes, err := os.ReadFile(dbPath)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(scrubbedBytes).To(Equal(buildHistoryDatabase(t, []string{longPath})))
}

func TestRunNoShortSessionsLeavesHistoryDatabaseUnchanged(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	library := t.TempDir()
	sessionsDir := filepath.Join(library, "History", "Sessions")
	g.Expect(os.MkdirAll(sessionsDir, 0o750)).To(Succeed())

	longPath := filepath.Join(sessionsDir, "long.session")
	g.Expect(os.WriteFile(longPath, buildSessionFile(t, 120), 0o600)).To(Succeed())

	dbPath := filepath.Join(library, "History", "history.database")
	original := buildHistoryDatabase(t, []string{longPath})
	g.Expect(os.WriteFile(dbPath, original, 0o600)).To(Succeed())

	result, err := sessionclean.Run(library, 30, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.SessionsDeleted).To(Equal(0))
	g.Expect(result.HistoryScrubbed).To(Equal(0))

	scrubbedBytes, err := os.ReadFile(dbPath)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(scrubbedBytes).To(Equal(original))
}

func TestRunReportsParseErrorsWithoutAborting(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	library := t.TempDir()
	sessionsDir := filepath.Join(library, "History", "Sessions")
	g.Expect(os.MkdirAll(sessionsDir, 0o750)).To(Succeed())

	badPath := filepath.Join(sessionsDir, "corrupt.session")
	g.Expect(os.WriteFile(badPath, []byte("not a session file"), 0o600)).To(Succeed())

	var reported []string

	result, err := sessionclean.Run(library, 30, func(path string, _ error) {
		reported = append(reported, path)
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.SessionsDeleted).To(Equal(0))
	g.Expect(reported).To(ConsistOf(badPath))
	g.Expect(badPath).To(BeAnExistingFile())
}
