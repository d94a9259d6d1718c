package handlers

import "context"

// HandleGeneral fulfils unclassified chat. It carries no data payload;
// the formatter generates (or cans) the conversational reply.
func (s *Set) HandleGeneral(ctx context.Context, p *Params, message string) *Result {
	return &Result{Success: true}
}
