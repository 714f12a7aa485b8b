// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kirkas-siivous/kirkas/pricing"
	"github.com/kirkas-siivous/kirkas/quote"
	"github.com/kirkas-siivous/kirkas/spatial"
)

type estimateQuery struct {
	Property  string  `form:"property,default=apartment"`
	Area      float64 `form:"area,default=60"`
	Level     string  `form:"level,default=standard"`
	Frequency string  `form:"frequency,default=biweekly"`
	Fee       float64 `form:"fee"`
	Address   string  `form:"address"`
}

// inputPatch is a partial QuoteInput; absent fields are left unchanged.
type inputPatch struct {
	Property  *string  `json:"property_type"`
	Area      *float64 `json:"area_sqm"`
	Level     *string  `json:"service_level"`
	Frequency *string  `json:"frequency"`
	Address   *string  `json:"address"`
	Select    *int     `json:"select"`
}

type locateRequest struct {
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Denied      bool     `json:"denied"`
	Unavailable bool     `json:"unavailable"`
}

type sessionResponse struct {
	ID string `json:"id"`
	quote.Snapshot
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"property_types": pricing.PropertyTypes(),
		"service_levels": pricing.ServiceLevels(),
		"frequencies":    pricing.Frequencies(),
		"area": gin.H{
			"min":     pricing.MinAreaSqm,
			"max":     pricing.MaxAreaSqm,
			"step":    pricing.AreaStep,
			"default": pricing.DefaultAreaSqm,
		},
	})
}

func (s *Server) estimate(c *gin.Context) {
	var q estimateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	in, err := q.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if q.Fee < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fee must not be negative"})

		return
	}

	var st quote.Status

	fee := q.Fee
	if q.Address != "" {
		st = s.resolver.Lookup(c.Request.Context(), q.Address)
		fee = st.Fee
	}

	c.JSON(http.StatusOK, quote.Snapshot{
		Input:           in,
		ServiceReceiver: in.ServiceReceiver(),
		Estimate:        pricing.Estimate(in, fee),
		Status:          st,
		Error:           st.Problem(),
		Suggestions:     []string{},
	})
}

func (q estimateQuery) input() (pricing.QuoteInput, error) {
	property, err := pricing.ParsePropertyType(q.Property)
	if err != nil {
		return pricing.QuoteInput{}, err
	}

	level, err := pricing.ParseServiceLevel(q.Level)
	if err != nil {
		return pricing.QuoteInput{}, err
	}

	frequency, err := pricing.ParseFrequency(q.Frequency)
	if err != nil {
		return pricing.QuoteInput{}, err
	}

	return pricing.QuoteInput{
		PropertyType: property,
		AreaSqm:      pricing.ClampArea(q.Area),
		ServiceLevel: level,
		Frequency:    frequency,
		Address:      q.Address,
	}, nil
}

func (s *Server) suggest(c *gin.Context) {
	seq, err := s.suggester.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.logger.WarnContext(c.Request.Context(), "suggest failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding provider unavailable"})

		return
	}

	suggestions := slices.Collect(seq)
	if suggestions == nil {
		suggestions = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *Server) resolve(c *gin.Context) {
	st := s.resolver.Lookup(c.Request.Context(), c.Query("q"))

	c.JSON(http.StatusOK, resolveResponse(st))
}

func (s *Server) locate(c *gin.Context) {
	var req locateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	st := s.resolver.LookupPoint(c.Request.Context(), req.locator())

	c.JSON(http.StatusOK, resolveResponse(st))
}

func resolveResponse(st quote.Status) gin.H {
	return gin.H{
		"status":  st,
		"problem": st.Problem(),
	}
}

func (r locateRequest) locator() quote.Locator {
	switch {
	case r.Denied:
		return quote.StaticLocator{Denied: true}
	case r.Unavailable, r.Lat == nil, r.Lon == nil:
		return quote.StaticLocator{}
	}

	return quote.StaticLocator{Point: &spatial.Point{Lat: *r.Lat, Lng: *r.Lon}}
}

func (s *Server) createSession(c *gin.Context) {
	var patch inputPatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if patch.Select != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a new session has no suggestions to select"})

		return
	}

	in := pricing.DefaultQuoteInput()
	if err := patch.applyTo(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	id, session := s.sessions.Create(&in)

	c.JSON(http.StatusCreated, sessionResponse{ID: id, Snapshot: session.Snapshot()})
}

func (s *Server) session(c *gin.Context) (*quote.Session, bool) {
	session, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	}

	return session, ok
}

func (s *Server) getSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	if c.Query("flush") == "true" {
		session.Flush()
	}

	c.JSON(http.StatusOK, sessionResponse{ID: c.Param("id"), Snapshot: session.Snapshot()})
}

func (s *Server) patchSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	var patch inputPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	// validate everything before touching the session
	in := session.Snapshot().Input
	if err := patch.applyTo(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if patch.Property != nil {
		session.SetPropertyType(in.PropertyType)
	}

	if patch.Area != nil {
		session.SetArea(in.AreaSqm)
	}

	if patch.Level != nil {
		session.SetServiceLevel(in.ServiceLevel)
	}

	if patch.Frequency != nil {
		session.SetFrequency(in.Frequency)
	}

	switch {
	case patch.Select != nil:
		if err := session.SelectSuggestion(*patch.Select); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

			return
		}
	case patch.Address != nil:
		session.SetAddress(*patch.Address)
	}

	if c.Query("flush") == "true" {
		session.Flush()
	}

	c.JSON(http.StatusOK, sessionResponse{ID: c.Param("id"), Snapshot: session.Snapshot()})
}

func (p inputPatch) applyTo(in *pricing.QuoteInput) error {
	if p.Property != nil {
		v, err := pricing.ParsePropertyType(*p.Property)
		if err != nil {
			return err
		}

		in.PropertyType = v
	}

	if p.Level != nil {
		v, err := pricing.ParseServiceLevel(*p.Level)
		if err != nil {
			return err
		}

		in.ServiceLevel = v
	}

	if p.Frequency != nil {
		v, err := pricing.ParseFrequency(*p.Frequency)
		if err != nil {
			return err
		}

		in.Frequency = v
	}

	if p.Area != nil {
		in.AreaSqm = pricing.ClampArea(*p.Area)
	}

	if p.Address != nil {
		if p.Select != nil {
			return errors.New("address and select are mutually exclusive")
		}

		in.Address = *p.Address
	}

	return nil
}

func (s *Server) locateSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	var req locateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := session.Locate(c.Request.Context(), req.locator()); err != nil {
		s.logger.DebugContext(c.Request.Context(), "session locate failed", "id", c.Param("id"), "error", err)
	}

	c.JSON(http.StatusOK, sessionResponse{ID: c.Param("id"), Snapshot: session.Snapshot()})
}

func (s *Server) sessionEvents(c *gin.Context) {
	session, release, ok := s.sessions.Hold(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})

		return
	}
	defer release()

	// the latest snapshot replaces an undelivered one
	updates := make(chan quote.Snapshot, 1)
	push := func(snap quote.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}

			select {
			case <-updates:
			default:
			}
		}
	}

	cancel := session.OnChange(push)
	defer cancel()

	push(session.Snapshot())

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap := <-updates:
			c.SSEvent("snapshot", snap)

			return true
		}
	})
}

func (s *Server) deleteSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})

		return
	}

	c.Status(http.StatusNoContent)
}
