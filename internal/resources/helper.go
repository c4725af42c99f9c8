package resources

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// HelperKind selects which figure the helper reports.
type HelperKind string

const (
	HelperTotal    HelperKind = "total"
	HelperBaseline HelperKind = "base"
)

// ReadKB is the helper side of the protocol, used by "arcbot mem". Total is
// the resident set size; baseline counts only private (clean + dirty)
// pages from the process memory maps, so shared libraries and page cache
// are excluded.
func ReadKB(ctx context.Context, kind HelperKind, pid int32) (uint64, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, fmt.Errorf("opening process %d: %w", pid, err)
	}

	switch kind {
	case HelperTotal:
		mi, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			return 0, fmt.Errorf("reading memory info: %w", err)
		}
		return mi.RSS / 1024, nil
	case HelperBaseline:
		maps, err := p.MemoryMapsWithContext(ctx, true)
		if err != nil {
			return 0, fmt.Errorf("reading memory maps: %w", err)
		}
		var kb uint64
		if maps != nil {
			for _, m := range *maps {
				kb += m.PrivateClean + m.PrivateDirty
			}
		}
		return kb, nil
	default:
		return 0, fmt.Errorf("unknown helper kind %q (use %q or %q)", kind, HelperTotal, HelperBaseline)
	}
}
