package trial

import (
	"math/rand"

	"blockinstruct.ai/internal/protocol"
)

// Speaker identities. Pia issues only "a" variants of critical trials; Lisa
// mixes "a" and "b" variants per her template.
const (
	SpeakerPia  = "Pia"
	SpeakerLisa = "Lisa"
)

// GridContext is the static natural-language description of the coordinate
// system, prepended to the first prompt of every instruction. Opaque payload
// as far as sequencing is concerned.
const GridContext = "Grid: 9x9 cells. Origin=\"middle square\": center (0,0), is highlighted. " +
	"The grid is the x-z plane. In front of you is the bottom left corner (-400,0,400) " +
	"and the bottom right corner (400,0,400). Top right corner is (400,0,-400), " +
	"top left corner is (-400,0,-400). Valid x,z: [-400,-300,-200,-100,0,100,200,300,400]. " +
	"Y(ground)=50; each extra block adds +100; valid y values are [50,150,250,350,450]. " +
	"The grid may or may not contain an existing structure. The grid might be empty. " +
	"Output: \"Coordinates:Color,x,y,z;Color,x,y,z;\" items separated by \";\"; no spaces; " +
	"write coordinates of all blocks that are on the grid, including the initial coordinates; " +
	"color should be capitalized. Only one question is allowed."

type slotKind int

const (
	slotFullySpec slotKind = iota
	slotCriticalA
	slotCriticalB
)

// Each speaker walks a fixed 20-slot ordering template. The templates are
// constants, never derived from data: Pia alternates fully-specified and
// "a"-variant critical trials; Lisa resolves a third of her critical slots
// as "a" and the rest as "b".
var speakerTemplates = map[string][20]slotKind{
	SpeakerPia: {
		slotFullySpec, slotCriticalA, slotFullySpec, slotCriticalA,
		slotFullySpec, slotCriticalA, slotFullySpec, slotCriticalA,
		slotFullySpec, slotCriticalA, slotFullySpec, slotCriticalA,
		slotFullySpec, slotCriticalA, slotFullySpec, slotCriticalA,
		slotFullySpec, slotCriticalA, slotFullySpec, slotCriticalA,
	},
	SpeakerLisa: {
		slotFullySpec, slotCriticalA, slotFullySpec, slotCriticalB,
		slotFullySpec, slotCriticalB, slotFullySpec, slotCriticalA,
		slotFullySpec, slotCriticalB, slotFullySpec, slotCriticalB,
		slotFullySpec, slotCriticalA, slotFullySpec, slotCriticalB,
		slotFullySpec, slotCriticalB, slotFullySpec, slotCriticalB,
	},
}

// Instance is one instruction a speaker will issue. Round numbers are
// globally unique and increase across both speaker lists.
type Instance struct {
	Round           int    `json:"round"`
	Speaker         string `json:"speaker"`
	StartStructure  string `json:"start_structure"`
	Instruction     string `json:"instruction"`
	TrialID         string `json:"trial_id"`
	ListID          int    `json:"list_id"`
	TargetStructure string `json:"target_structure"`
}

// Selection is the output of sequencing: the full ordered instruction
// program for one evaluation run.
type Selection struct {
	GridContext   string
	FirstSpeaker  string
	SecondSpeaker string

	// List ids backing each category for the first speaker; the second
	// speaker uses the complement of each.
	FullySpecList int
	CriticalList  int

	First  []Instance
	Second []Instance
}

// All returns both instruction lists in run order.
func (s *Selection) All() []Instance {
	out := make([]Instance, 0, len(s.First)+len(s.Second))
	out = append(out, s.First...)
	out = append(out, s.Second...)
	return out
}

type speakerPools struct {
	speaker    string
	fullySpec  []string // shuffled base numbers
	critical   []string
	fullyDS    *Dataset
	criticalDS *Dataset
}

// Generate selects the speaker order, list assignments, and ordered
// instruction set for both speakers. Deterministic for a given rng state:
// the same seed reproduces the identical selection.
func Generate(list1, list2 *Dataset, rng *rand.Rand) (*Selection, error) {
	if list1 == nil || list2 == nil {
		return nil, protocol.E(protocol.ErrConfig, "sequencer requires two datasets")
	}
	if rng == nil {
		return nil, protocol.E(protocol.ErrConfig, "sequencer requires an explicit random source")
	}

	speakers := [2]string{SpeakerPia, SpeakerLisa}
	first := speakers[rng.Intn(2)]
	second := SpeakerLisa
	if first == SpeakerLisa {
		second = SpeakerPia
	}

	datasets := map[int]*Dataset{1: list1, 2: list2}
	fullyList := 1 + rng.Intn(2)
	criticalList := 1 + rng.Intn(2)

	// The second speaker draws each category from the complementary list, so
	// no base trial number repeats across speakers within a category.
	pools := [2]speakerPools{
		buildPools(first, datasets[fullyList], datasets[criticalList], rng),
		buildPools(second, datasets[complement(fullyList)], datasets[complement(criticalList)], rng),
	}

	sel := &Selection{
		GridContext:   GridContext,
		FirstSpeaker:  first,
		SecondSpeaker: second,
		FullySpecList: fullyList,
		CriticalList:  criticalList,
	}

	round := 1
	sel.First, round = walkTemplate(pools[0], round)
	sel.Second, _ = walkTemplate(pools[1], round)
	return sel, nil
}

func complement(listID int) int {
	if listID == 1 {
		return 2
	}
	return 1
}

func buildPools(speaker string, fullyDS, criticalDS *Dataset, rng *rand.Rand) speakerPools {
	fully := append([]string(nil), fullyDS.Categorize()[TypeFullySpec]...)
	crit := criticalDS.Categorize()
	critical := append([]string(nil), crit[TypeColorUnder]...)
	critical = append(critical, crit[TypeNumberUnder]...)

	rng.Shuffle(len(fully), func(i, j int) { fully[i], fully[j] = fully[j], fully[i] })
	rng.Shuffle(len(critical), func(i, j int) { critical[i], critical[j] = critical[j], critical[i] })

	return speakerPools{
		speaker:    speaker,
		fullySpec:  fully,
		critical:   critical,
		fullyDS:    fullyDS,
		criticalDS: criticalDS,
	}
}

// walkTemplate consumes pool entries slot by slot. A versioned lookup falls
// back to the unversioned base id; if that also misses the slot is skipped,
// and either way the pool index advances.
func walkTemplate(p speakerPools, round int) ([]Instance, int) {
	var out []Instance
	fullyIdx, critIdx := 0, 0
	for _, kind := range speakerTemplates[p.speaker] {
		var (
			ds     *Dataset
			base   string
			suffix string
		)
		switch kind {
		case slotFullySpec:
			if fullyIdx >= len(p.fullySpec) {
				continue
			}
			ds, base = p.fullyDS, p.fullySpec[fullyIdx]
			fullyIdx++
		case slotCriticalA:
			if critIdx >= len(p.critical) {
				continue
			}
			ds, base, suffix = p.criticalDS, p.critical[critIdx], "a"
			critIdx++
		case slotCriticalB:
			if critIdx >= len(p.critical) {
				continue
			}
			ds, base, suffix = p.criticalDS, p.critical[critIdx], "b"
			critIdx++
		}

		rec, ok := resolve(ds, base, suffix)
		if !ok {
			continue
		}
		out = append(out, Instance{
			Round:           round,
			Speaker:         p.speaker,
			StartStructure:  rec.StartStructure,
			Instruction:     rec.Instruction,
			TrialID:         rec.TrialID,
			ListID:          rec.ListID,
			TargetStructure: rec.TargetStructure,
		})
		round++
	}
	return out, round
}

func resolve(ds *Dataset, base, suffix string) (Record, bool) {
	if suffix != "" {
		if rec, ok := ds.Lookup(base + suffix); ok {
			return rec, true
		}
	}
	return ds.Lookup(base)
}
