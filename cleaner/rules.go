package cleaner

import (
	"fmt"
	"regexp"
	"strings"
)

// Rewrite replaces one cascading-delete token with its non-cascading form.
type Rewrite struct {
	From string
	To   string
}

// Rules configures what the cleaner treats as a duplicate artifact.
type Rules struct {
	// Suffix marks a duplicate-identifier column, e.g. "Id1" in CustomerId1.
	Suffix string
	// ColumnTypes are the CLR types a duplicate column may be declared with.
	ColumnTypes []string
	// Rewrites are applied to the whole document after all removals.
	Rewrites []Rewrite
	// Terminators are call names that start a new declaration in snapshot
	// code. A chained statement never consumes one of them.
	Terminators []string
}

// DefaultRules returns the rules used when no config file is present.
func DefaultRules() Rules {
	return Rules{
		Suffix:      "Id1",
		ColumnTypes: []string{"Guid", "int", "long"},
		Rewrites: []Rewrite{
			{From: "ReferentialAction.Cascade", To: "ReferentialAction.NoAction"},
			{From: "DeleteBehavior.Cascade", To: "DeleteBehavior.NoAction"},
		},
		Terminators: []string{
			"Property", "HasIndex", "HasKey", "HasOne", "HasMany", "ToTable",
			"Navigation", "OwnsOne", "OwnsMany", "HasData", "HasDiscriminator",
			"HasBaseType", "Ignore",
		},
	}
}

var suffixRE = regexp.MustCompile(`^\w+$`)

// Validate reports the first problem with r.
func (r Rules) Validate() error {
	if r.Suffix == "" {
		return ErrEmptySuffix
	}
	if !suffixRE.MatchString(r.Suffix) {
		return fmt.Errorf("suffix %q must only contain letters, digits or '_'", r.Suffix)
	}
	if len(r.ColumnTypes) == 0 {
		return fmt.Errorf("at least one column type is required")
	}
	for _, rw := range r.Rewrites {
		if rw.From == "" || rw.To == "" {
			return fmt.Errorf("cascade rewrite needs both from and to")
		}
		if rw.From == rw.To {
			return fmt.Errorf("cascade rewrite %q maps to itself", rw.From)
		}
		if strings.Contains(rw.To, rw.From) {
			return fmt.Errorf("cascade rewrite %q -> %q would not be stable", rw.From, rw.To)
		}
		for _, other := range r.Rewrites {
			if rw.To == other.From {
				return fmt.Errorf("cascade rewrite target %q is itself rewritten", rw.To)
			}
		}
	}
	return nil
}

// IsDuplicateColumn reports whether name is a duplicate-identifier column:
// it ends with the suffix and has something in front of it.
func (r Rules) IsDuplicateColumn(name string) bool {
	return len(name) > len(r.Suffix) && strings.HasSuffix(name, r.Suffix)
}

// ReferencesDuplicate reports whether a generated constraint or index name
// such as FK_CustomerTags_Customers_CustomerId1 mentions a duplicate column.
// The leading FK_/IX_ part is ignored.
func (r Rules) ReferencesDuplicate(name string) bool {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[1:] {
		if r.IsDuplicateColumn(p) {
			return true
		}
	}
	return false
}
