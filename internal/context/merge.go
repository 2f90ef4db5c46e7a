package context

// Merge fills the parts of ac that are unset from fallback. Supplementary
// keys are merged with ac's values taking precedence.
func (ac AgentContext) Merge(fallback AgentContext) AgentContext {
	out := ac
	if out.Task == nil {
		out.Task = fallback.Task
	}
	if out.Ticket == nil {
		out.Ticket = fallback.Ticket
	}
	if out.Plan == nil {
		out.Plan = fallback.Plan
	}
	if len(out.History) == 0 {
		out.History = fallback.History
	}
	if len(fallback.Supplementary) > 0 {
		merged := make(map[string]any, len(fallback.Supplementary)+len(ac.Supplementary))
		for k, v := range fallback.Supplementary {
			merged[k] = v
		}
		for k, v := range ac.Supplementary {
			merged[k] = v
		}
		out.Supplementary = merged
	}
	return out
}
