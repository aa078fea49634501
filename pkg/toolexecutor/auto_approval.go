package toolexecutor

import (
	"context"

	"github.com/rs/zerolog/log"
)

// AutoApprovePresenter approves every request without user interaction.
type AutoApprovePresenter struct{}

// PresentConsent implements ConsentPresenter
func (AutoApprovePresenter) PresentConsent(_ context.Context, req ConsentRequest, resolver ConsentResolver) {
	log.Warn().Str("call_id", req.ID).Str("tool", req.ToolName).Msg("Consent auto-approved")
	_ = resolver.Resolve(req.ID, DecisionApproved)
}

// MultiPresenter shows each request on every presenter. The gate keeps the
// first decision; later ones get ErrConsentNotPending and every presenter
// sees ctx done once the request settles.
type MultiPresenter []ConsentPresenter

// PresentConsent implements ConsentPresenter
func (m MultiPresenter) PresentConsent(ctx context.Context, req ConsentRequest, resolver ConsentResolver) {
	for _, presenter := range m {
		if presenter == nil {
			continue
		}
		shown := req
		shown.Args = cloneArgs(req.Args)
		presenter.PresentConsent(ctx, shown, resolver)
	}
}
