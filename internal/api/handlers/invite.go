package handlers

import (
	"errors"
	"net/http"

	"github.com/hugh/go-referral/internal/api/dto"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/referral"
	"github.com/hugh/go-referral/internal/session"
	"github.com/hugh/go-referral/pkg/invitelink"
)

type InviteHandler struct {
	authService auth.InviteResolver
	resolver    *referral.Resolver
	codec       *invitelink.Codec
	publicURL   string
}

func NewInviteHandler(authService auth.InviteResolver, resolver *referral.Resolver, codec *invitelink.Codec, publicURL string) *InviteHandler {
	return &InviteHandler{
		authService: authService,
		resolver:    resolver,
		codec:       codec,
		publicURL:   publicURL,
	}
}

// Resolve names the inviter behind ?ref= for the registration page.
func (h *InviteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ref is required"})
		return
	}

	inviter, err := h.authService.ResolveInviter(r.Context(), ref)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInviteCode) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Invite code not recognized"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to resolve invite"})
		return
	}

	writeJSON(w, http.StatusOK, dto.InviteResolveResponse{
		InviterName:  inviter.FullName(),
		ReferralCode: inviter.ReferralCode,
	})
}

func (h *InviteHandler) Mine(w http.ResponseWriter, r *http.Request) {
	invite, err := h.invite(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load invite"})
		return
	}
	writeJSON(w, http.StatusOK, invite)
}

// invite prefers the stored referral code and falls back to the token
// derived from the session phone.
func (h *InviteHandler) invite(r *http.Request) (dto.InviteResponse, error) {
	s := session.FromContext(r.Context())

	code, ok, err := h.resolver.ResolveCode(r.Context(), s.AccountID)
	if err != nil {
		return dto.InviteResponse{}, err
	}
	if !ok {
		code = ""
	}

	ref := h.codec.PreferredRef(code, s.Phone)
	return dto.InviteResponse{
		Ref:          ref,
		Link:         invitelink.Link(h.publicURL, ref),
		ReferralCode: code,
	}, nil
}
