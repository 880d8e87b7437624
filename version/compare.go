package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Compare orders two release tags. It returns 1 when a is newer than b,
// -1 when it is older and 0 when both name the same release.
// A missing minor or patch counts as zero and a pre-release suffix sorts
// before the release it precedes.
func Compare(a, b string) (int, error) {
	av, apre, err := parseTag(a)
	if err != nil {
		return 0, err
	}

	bv, bpre, err := parseTag(b)
	if err != nil {
		return 0, err
	}

	for i := range av {
		switch {
		case av[i] > bv[i]:
			return 1, nil
		case av[i] < bv[i]:
			return -1, nil
		}
	}

	switch {
	case apre == bpre:
		return 0, nil
	case apre == "":
		return 1, nil
	case bpre == "":
		return -1, nil
	case apre > bpre:
		return 1, nil
	default:
		return -1, nil
	}
}

func parseTag(tag string) (parts [3]int, pre string, err error) {
	core, pre, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(tag), "v"), "-")

	fields := strings.Split(core, ".")
	if len(fields) > len(parts) {
		return parts, "", fmt.Errorf("invalid version %q", tag)
	}

	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return parts, "", fmt.Errorf("invalid version %q", tag)
		}
		parts[i] = n
	}

	return parts, pre, nil
}
