package compliance

// builtinPolicies is the default policy table. Keys are
// "platform|vertical"; a key with an empty vertical applies to every
// vertical on that platform.
//
// The realtor rules track fair-housing guidance: steering language and
// dated room terminology are removed or neutralized before content leaves
// the gateway.
func builtinPolicies() map[string]Policy {
	return map[string]Policy{
		"linkedin|": {
			Rules: []Rule{
				{Phrase: "click the link below"},
				{Phrase: "link in bio"},
			},
			Reminders: []string{
				"Place external links in the first comment, not the post body; LinkedIn down-ranks in-body links.",
				"Add alt text to any attached image.",
			},
		},
		"linkedin|realtor": {
			Rules: []Rule{
				{Phrase: "family-friendly"},
				{Phrase: "master bedroom", Replacement: "primary bedroom"},
				{Phrase: "master bath", Replacement: "primary bath"},
				{Phrase: "exclusive neighborhood", Replacement: "sought-after neighborhood"},
				{Phrase: "walking distance", Replacement: "a short distance"},
			},
		},
		"email|": {
			Rules: []Rule{
				{Phrase: "100% free"},
				{Phrase: "act now"},
				{Phrase: "risk-free"},
			},
			Reminders: []string{
				"Keep the subject line under 60 characters.",
				"Include the unsubscribe footer; do not reference it in body copy.",
			},
		},
		"telegram|": {
			Reminders: []string{
				"Escape Markdown control characters before sending.",
			},
		},
	}
}
