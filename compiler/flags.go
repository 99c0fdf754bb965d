package compiler

import (
	"sort"

	"github.com/marmot-lang/marmot/errors"
)

// Flag categories, matching the pragma statements that toggle them.
const (
	CategoryFeature  = "feature"
	CategoryWarnings = "warnings"
	CategoryStrict   = "strict"
)

// Flags is the per-scope pragma state: three fixed-width bit vectors
// keyed by the static name tables below. Flags is a value type: scope
// entry copies it, so a child scope's pragma changes never leak into
// the parent.
type Flags struct {
	Features uint64
	Warnings uint64
	Strict   uint64
}

// Bit positions are assigned once at package init from these tables and
// never change within a process.
var (
	featureBits  map[string]uint
	warningBits  map[string]uint
	strictBits   map[string]uint
	featureNames []string
	warningNames []string
	strictNames  []string

	// Names accepted for source compatibility with no effect. Anything
	// else unrecognized is a hard compile error.
	noopNames = map[string]bool{
		"bareword_filehandles": true,
		"indirect":             true,
		"multidimensional":     true,
	}

	defaultFeatures uint64
	allWarnings     uint64
	allStrict       uint64
)

func init() {
	featureNames = []string{
		"say",
		"signatures",
		"current_sub",
		"fc",
		"postderef",
		"state",
		"unicode_strings",
	}
	warningNames = []string{
		"shadow",
		"redefine",
		"uninitialized",
		"numeric",
		"void",
		"deprecated",
		"once",
		"recursion",
	}
	strictNames = []string{
		"vars",
		"refs",
		"subs",
	}
	featureBits = buildBits(featureNames)
	warningBits = buildBits(warningNames)
	strictBits = buildBits(strictNames)

	// `use feature;` with no names enables the modern bundle.
	for _, name := range []string{"say", "signatures", "current_sub", "fc", "unicode_strings"} {
		defaultFeatures |= 1 << featureBits[name]
	}
	for _, bit := range warningBits {
		allWarnings |= 1 << bit
	}
	for _, bit := range strictBits {
		allStrict |= 1 << bit
	}
}

func buildBits(names []string) map[string]uint {
	bits := make(map[string]uint, len(names))
	for i, name := range names {
		bits[name] = uint(i)
	}
	return bits
}

// KnownNames returns the recognized names for a category, sorted. Used
// for suggestion hints in errors.
func KnownNames(category string) []string {
	var names []string
	switch category {
	case CategoryFeature:
		names = append(names, featureNames...)
	case CategoryWarnings:
		names = append(names, warningNames...)
		names = append(names, "all")
	case CategoryStrict:
		names = append(names, strictNames...)
	}
	sort.Strings(names)
	return names
}

// Set enables or disables the named bits in one category. An empty name
// list selects the category default: the feature bundle, all warnings,
// or all strict modes. Unrecognized names are fatal unless allow-listed
// as no-ops.
func (f *Flags) Set(category string, names []string, enable bool, loc errors.SourceLocation) error {
	if len(names) == 0 {
		f.setDefault(category, enable)
		return nil
	}
	for _, name := range names {
		if err := f.setOne(category, name, enable, loc); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flags) setDefault(category string, enable bool) {
	switch category {
	case CategoryFeature:
		if enable {
			f.Features |= defaultFeatures
		} else {
			f.Features = 0
		}
	case CategoryWarnings:
		if enable {
			f.Warnings = allWarnings
		} else {
			f.Warnings = 0
		}
	case CategoryStrict:
		if enable {
			f.Strict = allStrict
		} else {
			f.Strict = 0
		}
	}
}

func (f *Flags) setOne(category, name string, enable bool, loc errors.SourceLocation) error {
	var vector *uint64
	var bits map[string]uint
	switch category {
	case CategoryFeature:
		vector, bits = &f.Features, featureBits
	case CategoryWarnings:
		if name == "all" {
			f.setDefault(category, enable)
			return nil
		}
		vector, bits = &f.Warnings, warningBits
	case CategoryStrict:
		vector, bits = &f.Strict, strictBits
	default:
		return errors.NewUnsupportedFeatureError(category, name, nil, loc)
	}
	bit, ok := bits[name]
	if !ok {
		if noopNames[name] {
			return nil
		}
		return errors.NewUnsupportedFeatureError(category, name, KnownNames(category), loc)
	}
	if enable {
		*vector |= 1 << bit
	} else {
		*vector &^= 1 << bit
	}
	return nil
}

// FeatureEnabled reports whether a feature bit is set. Unknown names
// report false.
func (f Flags) FeatureEnabled(name string) bool {
	bit, ok := featureBits[name]
	return ok && f.Features&(1<<bit) != 0
}

// WarningEnabled reports whether a warning bit is set.
func (f Flags) WarningEnabled(name string) bool {
	bit, ok := warningBits[name]
	return ok && f.Warnings&(1<<bit) != 0
}

// StrictEnabled reports whether a strict mode bit is set.
func (f Flags) StrictEnabled(name string) bool {
	bit, ok := strictBits[name]
	return ok && f.Strict&(1<<bit) != 0
}
