package buf

import (
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary is a human-readable snapshot of a buffer, for logs and
// debugging. It is not load-bearing for correctness.
type Summary struct {
	Kind          string
	BytesUsed     int
	BytesReserved int
	Slabs         int
	CustomSlabs   int
}

var summaryPrinter = message.NewPrinter(language.English)

// String renders the summary, e.g.
//
//	slab buffer: 1.5 MiB used of 2.0 MiB reserved (1,572,864 bytes, 2 slabs, 0 custom)
func (s Summary) String() string {
	if s.Kind == "slab" {
		return summaryPrinter.Sprintf("%s buffer: %s used of %s reserved (%d bytes, %d slabs, %d custom)",
			s.Kind,
			humanize.IBytes(uint64(s.BytesUsed)),
			humanize.IBytes(uint64(s.BytesReserved)),
			s.BytesUsed, s.Slabs, s.CustomSlabs)
	}
	return summaryPrinter.Sprintf("%s buffer: %s used of %s reserved (%d bytes)",
		s.Kind,
		humanize.IBytes(uint64(s.BytesUsed)),
		humanize.IBytes(uint64(s.BytesReserved)),
		s.BytesUsed)
}
