package engine

import "sort"

// validPairing enforces the pairing invariant: same gender, or family members.
// Minors additionally may not be paired across genders outside their family.
func (p *candidatePool) validPairing(main, assistant *candidate) bool {
	sameGender := main.student.Gender == assistant.student.Gender
	related := p.related(main, assistant)
	if main.student.Minor && !sameGender && !related {
		return false
	}
	return sameGender || related
}

// findAssistant returns the best available assistant for main, or nil.
// Ranking is family first, then same gender, then priority. The choice is
// local to main and not a global matching.
func (p *candidatePool) findAssistant(main *candidate) *candidate {
	eligible := make([]*candidate, 0)
	for _, c := range p.items {
		if c.used || c.id() == main.id() || !c.canAssist {
			continue
		}
		if !p.validPairing(main, c) {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		aFamily, bFamily := p.related(main, a), p.related(main, b)
		if aFamily != bFamily {
			return aFamily
		}
		aSame := a.student.Gender == main.student.Gender
		bSame := b.student.Gender == main.student.Gender
		if aSame != bSame {
			return aSame
		}
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		return a.id() < b.id()
	})
	return eligible[0]
}
