package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadpilot/outreach-router/internal/handler"
)

func setupRouter(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.ListLeads)
			r.Post("/", h.CreateLead)
			r.Get("/{leadID}/events", h.ListLeadEvents)
			r.Post("/{leadID}/contacts", h.SetLeadContact)
		})

		r.Get("/contacts", h.ListContacts)

		r.Route("/approvals", func(r chi.Router) {
			r.Post("/", h.CreateDraft)
			r.Get("/pending", h.ListPendingApprovals)
			r.Get("/approved", h.ListApprovedApprovals)
			r.Post("/{approvalID}/approve", h.ApproveDraft)
			r.Post("/{approvalID}/reject", h.RejectDraft)
		})

		r.Route("/dnc", func(r chi.Router) {
			r.Get("/", h.ListDncEntries)
			r.Post("/", h.AddDncEntry)
			r.Delete("/", h.RemoveDncEntry)
		})

		r.Post("/router/process", h.ProcessBatch)

		r.Route("/scheduler", func(r chi.Router) {
			r.Post("/start", h.StartScheduler)
			r.Post("/stop", h.StopScheduler)
		})
	})

	return r
}
