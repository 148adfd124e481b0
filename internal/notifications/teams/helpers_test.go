package teams

// allFacts returns every fact across all sections, in order.
func allFacts(c MessageCard) []Fact {
	var facts []Fact
	for _, s := range c.Sections {
		facts = append(facts, s.Facts...)
	}
	return facts
}

// actionURI returns the target of the first action, or "".
func actionURI(c MessageCard) string {
	if len(c.PotentialAction) == 0 || len(c.PotentialAction[0].Targets) == 0 {
		return ""
	}
	return c.PotentialAction[0].Targets[0].URI
}
