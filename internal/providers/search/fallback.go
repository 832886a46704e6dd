package search

import "context"

// FirstNonEmpty tries providers in order and returns the first result with
// at least one candidate. When all are empty the last result is returned so
// the caller can inspect its error.
func FirstNonEmpty(ctx context.Context, q Query, providers ...Provider) Result {
	var last Result
	for _, p := range providers {
		if p == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{Source: p.Name(), Err: err}
		}
		last = p.Search(ctx, q)
		if len(last.OrEmpty()) > 0 {
			return last
		}
	}
	return last
}

// URLs returns the candidate URLs of r.
func (r Result) URLs() []string {
	list := r.OrEmpty()
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.URL)
	}
	return out
}

// Sources lists the provider names, used for logging.
func Sources(providers []Provider) []string {
	out := make([]string, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			out = append(out, string(p.Name()))
		}
	}
	return out
}
