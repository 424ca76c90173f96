package schema

// BadSlot is the sentinel slot value meaning "unassigned" (spec.md
// §3 "slot").
const BadSlot uint32 = 0xFFFFFFFF

// Reserved slot numbers for fields the engine always fixes itself
// (spec.md §4.E step 5 "Set default spc").
const (
	SlotRoot uint32 = 0
	SlotID   uint32 = 1
)

// UUIDFieldStrategy selects how a field path that contains a UUID
// segment gets indexed (spec.md §4.E step 7 "Complete").
type UUIDFieldStrategy int

const (
	// StrategyUUID indexes only at the canonical UUID prefix.
	StrategyUUID UUIDFieldStrategy = iota
	// StrategyUUIDField indexes only at the string-name prefix.
	StrategyUUIDField
	// StrategyBoth indexes at both prefixes, duplicating term and
	// value operations.
	StrategyBoth
)

// AccuracyEntry pairs one accuracy bucket edge with its derived term
// prefix (spec.md §3 "accuracy[] + acc_prefix[]").
type AccuracyEntry struct {
	Value  float64
	Prefix string
}

// Specification is the per-field-path record: both configuration
// (what the user declared) and derived state (what was computed) as
// described in spec.md §3 "Field specification" and §9 ("plain data
// composition, no inheritance").
type Specification struct {
	SepTypes SepTypes

	PrefixField string
	PrefixUUID  string

	Slot uint32

	Accuracy []AccuracyEntry

	Index IndexCombination

	Language      string
	StopStrategy  string
	StemStrategy  string
	StemLanguage  string

	Partials float64
	Error    float64

	IsNamespace  bool
	Dynamic      bool
	Strict       bool
	BoolTerm     bool
	Store        bool
	Recurse      bool
	PartialPaths bool
	HasUUIDPrefix bool
	StaticEndpoint bool
	Concrete     bool
	Complete     bool
	InsideNamespace bool
	UUIDField    bool
	UUIDPath     bool

	// DetectionEnabled mirrors the per-type "_*_detection" reserved
	// keys: whether GuessType is allowed to consider each concrete
	// kind while inferring an untyped value.
	DetectionEnabled map[FieldType]bool

	UUIDFieldStrategy UUIDFieldStrategy

	// Endpoint is the target index URL for a Foreign field; the
	// field's schema then lives in that other index (spec.md §3
	// "endpoint").
	Endpoint string

	// Script references a script compiled externally, consulted by
	// the §4.F.2 hook contract.
	Script *ScriptRef

	// FieldFound records whether this specification was fed from a
	// persisted schema node (spec.md §4.E step 1 "Feed").
	FieldFound bool

	// userIndexSet and userBoolTermSet record whether the user
	// explicitly supplied _index/_bool_term in this Process pass, so
	// ValidateRequired's type-specific defaults (spec.md §4.E step 4)
	// only apply when the user left them unset.
	userIndexSet    bool
	userBoolTermSet bool

	// children holds the persisted sub-schema for this path, keyed by
	// field name, mirroring the schema tree's nested-map shape
	// (spec.md §3 "Schema tree").
	Children map[string]*Specification
}

// ScriptRef is an opaque, externally-compiled script reference
// (spec.md §1 "Scripting engines ... an opaque ScriptHost").
type ScriptRef struct {
	Hash uint64
	Body string
}

// NewSpecification returns a Specification with the default flags
// (every index bit set, recursion on) and its maps initialized, as used
// at the root of a fresh index (spec.md §4.F step 1 "Reset
// specification to defaults").
func NewSpecification() *Specification {
	return &Specification{
		Slot:             SlotRoot,
		Index:            FieldAll,
		Recurse:          true,
		DetectionEnabled: make(map[FieldType]bool),
		Children:         make(map[string]*Specification),
	}
}

// Clone returns a shallow copy of s suitable for a writer's detached
// working copy (spec.md §3 "Schema tree": "a writer mutates a
// detached copy"). Slice/map fields are copied so mutating the clone
// never affects the original.
func (s *Specification) Clone() *Specification {
	clone := *s
	clone.Accuracy = append([]AccuracyEntry(nil), s.Accuracy...)
	clone.DetectionEnabled = make(map[FieldType]bool, len(s.DetectionEnabled))
	for k, v := range s.DetectionEnabled {
		clone.DetectionEnabled[k] = v
	}
	clone.Children = make(map[string]*Specification, len(s.Children))
	for k, v := range s.Children {
		clone.Children[k] = v
	}
	return &clone
}
