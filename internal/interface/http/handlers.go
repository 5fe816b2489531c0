package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkdojang/dojang/internal/application/command"
	"github.com/tkdojang/dojang/internal/application/query"
	exchangedoc "github.com/tkdojang/dojang/internal/domain/exchange"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.Health.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "uptime": s.Uptime().Round(time.Second).String()})
}

// ══════════════════════════════════════════════════════════════════════════════
// BELT & SYSTEM HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListBelts(c *gin.Context) {
	belts, err := s.deps.Profiles.ListBelts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, belts, &ResponseMeta{TotalCount: len(belts)})
}

func (s *Server) handleSystemStats(c *gin.Context) {
	stats, err := s.deps.Learning.GetSystemStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createProfileRequest struct {
	Name           string `json:"name"`
	Avatar         string `json:"avatar"`
	ColorTheme     string `json:"color_theme"`
	LearningMode   string `json:"learning_mode"`
	BeltID         string `json:"belt_id"`
	DailyStudyGoal int    `json:"daily_study_goal"`
}

type updateProfileRequest struct {
	Name           *string `json:"name"`
	Avatar         *string `json:"avatar"`
	ColorTheme     *string `json:"color_theme"`
	LearningMode   *string `json:"learning_mode"`
	DailyStudyGoal *int    `json:"daily_study_goal"`
}

type profileResponse struct {
	Profile   query.ProfileDTO `json:"profile"`
	Activated bool             `json:"activated,omitempty"`
}

func (s *Server) handleListProfiles(c *gin.Context) {
	profiles, err := s.deps.Profiles.ListProfiles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, profiles, &ResponseMeta{TotalCount: len(profiles)})
}

func (s *Server) handleCreateProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := s.deps.CreateProfile.Handle(c.Request.Context(), command.CreateProfileCommand{
		Name:           req.Name,
		Avatar:         profile.Avatar(req.Avatar),
		ColorTheme:     profile.ColorTheme(req.ColorTheme),
		LearningMode:   profile.LearningMode(req.LearningMode),
		RankID:         req.BeltID,
		DailyStudyGoal: req.DailyStudyGoal,
		CorrelationID:  c.GetString(requestIDKey),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, profileResponse{Profile: query.NewProfileDTO(res.Profile), Activated: res.Activated})
}

// handleGetActiveProfile answers 200 with a null profile when none is active.
func (s *Server) handleGetActiveProfile(c *gin.Context) {
	active, err := s.deps.Profiles.GetActiveProfile(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"profile": active})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.deps.Profiles.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cmd := command.UpdateProfileCommand{
		ProfileID:      c.Param("id"),
		Name:           req.Name,
		DailyStudyGoal: req.DailyStudyGoal,
		CorrelationID:  c.GetString(requestIDKey),
	}
	if req.Avatar != nil {
		v := profile.Avatar(*req.Avatar)
		cmd.Avatar = &v
	}
	if req.ColorTheme != nil {
		v := profile.ColorTheme(*req.ColorTheme)
		cmd.ColorTheme = &v
	}
	if req.LearningMode != nil {
		v := profile.LearningMode(*req.LearningMode)
		cmd.LearningMode = &v
	}

	res, err := s.deps.UpdateProfile.Handle(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"profile":        query.NewProfileDTO(res.Profile),
		"changed_fields": res.ChangedFields,
	})
}

func (s *Server) handleDeleteProfile(c *gin.Context) {
	res, err := s.deps.DeleteProfile.Handle(c.Request.Context(), command.DeleteProfileCommand{
		ProfileID:     c.Param("id"),
		CorrelationID: c.GetString(requestIDKey),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"profile_id": res.ProfileID,
		"name":       res.Name,
		"was_active": res.WasActive,
	})
}

func (s *Server) handleActivateProfile(c *gin.Context) {
	res, err := s.deps.ActivateProfile.Handle(c.Request.Context(), command.ActivateProfileCommand{
		ProfileID:     c.Param("id"),
		CorrelationID: c.GetString(requestIDKey),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"profile":     query.NewProfileDTO(res.Profile),
		"previous_id": res.PreviousID,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT & PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleEligibleContent(c *gin.Context) {
	res, err := s.deps.EligibleContent.Handle(c.Request.Context(), query.EligibleContentQuery{
		ProfileID: c.Param("id"),
		Kind:      c.Query("kind"),
		Category:  c.Query("category"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, res, &ResponseMeta{TotalCount: len(res.Items)})
}

func (s *Server) handleListProgress(c *gin.Context) {
	res, err := s.deps.Learning.ListProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (s *Server) handleGetProgress(c *gin.Context) {
	rec, err := s.deps.Learning.GetProgress(c.Request.Context(), c.Param("id"), c.Query("content_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rec)
}

type progressRequest struct {
	ContentID string `json:"content_id"`
}

func (s *Server) handleGetOrCreateProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.deps.Progress.GetOrCreate(c.Request.Context(), command.GetOrCreateProgressCommand{
		ProfileID: c.Param("id"),
		ContentID: req.ContentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, query.NewProgressDTO(rec))
}

type practiceRequest struct {
	ContentID string `json:"content_id"`
	Correct   bool   `json:"correct"`
}

func (s *Server) handleRecordPractice(c *gin.Context) {
	var req practiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.deps.Progress.RecordPractice(c.Request.Context(), command.RecordPracticeCommand{
		ProfileID: c.Param("id"),
		ContentID: req.ContentID,
		Correct:   req.Correct,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"progress":       query.NewProgressDTO(res.Record),
		"previous_stage": res.Outcome.PreviousStage,
		"stage_changed":  res.Outcome.StageChanged(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type sessionRequest struct {
	Type           string    `json:"type"`
	ItemsStudied   int       `json:"items_studied"`
	CorrectAnswers int       `json:"correct_answers"`
	FocusAreas     []string  `json:"focus_areas"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	sessions, err := s.deps.Learning.GetStudySessions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, sessions, &ResponseMeta{TotalCount: len(sessions)})
}

func (s *Server) handleRecordSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	typ, err := session.ParseType(req.Type)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := s.deps.RecordSession.Handle(c.Request.Context(), command.RecordStudySessionCommand{
		ProfileID:      c.Param("id"),
		Type:           typ,
		ItemsStudied:   req.ItemsStudied,
		CorrectAnswers: req.CorrectAnswers,
		FocusAreas:     req.FocusAreas,
		StartedAt:      req.StartedAt,
		EndedAt:        req.EndedAt,
		CorrelationID:  c.GetString(requestIDKey),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"session":       query.NewSessionDTO(res.Session),
		"streak_days":   res.Profile.StreakDays,
		"streak_change": res.StreakChange.String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type gradingRequest struct {
	Date           string `json:"date"`
	BeltTestedID   string `json:"belt_tested_id"`
	BeltAchievedID string `json:"belt_achieved_id"`
	Passed         bool   `json:"passed"`
	Type           string `json:"type"`
	Examiner       string `json:"examiner"`
	Notes          string `json:"notes"`
}

func (s *Server) handleListGradings(c *gin.Context) {
	history, err := s.deps.Learning.GetGradingHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, history, &ResponseMeta{TotalCount: len(history)})
}

func (s *Server) handleRecordGrading(c *gin.Context) {
	var req gradingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := timeutil.ParseDate(req.Date, s.deps.Location)
	if err != nil {
		badRequest(c, err)
		return
	}

	res, err := s.deps.RecordGrading.Handle(c.Request.Context(), command.RecordGradingCommand{
		ProfileID:      c.Param("id"),
		Date:           date,
		BeltTestedID:   req.BeltTestedID,
		BeltAchievedID: req.BeltAchievedID,
		Passed:         req.Passed,
		Type:           grading.Type(req.Type),
		Examiner:       req.Examiner,
		Notes:          req.Notes,
		CorrelationID:  c.GetString(requestIDKey),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"grading":  query.NewGradingDTO(res.Record),
		"profile":  query.NewProfileDTO(res.Profile),
		"promoted": res.Promoted,
	})
}

func (s *Server) handleGradingStats(c *gin.Context) {
	stats, err := s.deps.Learning.GetGradingStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (s *Server) handleProfileStats(c *gin.Context) {
	stats, err := s.deps.Learning.GetProfileStatistics(c.Request.Context(), c.Param("id"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// ══════════════════════════════════════════════════════════════════════════════
// EXCHANGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleExport streams a sealed .tkdprofile file. Repeat profile_id to
// select several profiles; omit it to export all.
func (s *Server) handleExport(c *gin.Context) {
	doc, err := s.deps.Export.Handle(c.Request.Context(), query.ExportProfilesQuery{
		ProfileIDs: c.QueryArray("profile_id"),
		DeviceName: c.Query("device"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := s.deps.Codec.Seal(doc)
	if err != nil {
		respondError(c, err)
		return
	}

	name := "profiles-" + doc.ExportedAt.UTC().Format("20060102-150405") + exchangedoc.FileExtension
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleImport(c *gin.Context) {
	doc, err := s.deps.Codec.Decode(c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := s.deps.ImportProfiles.Handle(c.Request.Context(), command.ImportProfilesCommand{
		Document:      doc,
		CorrelationID: c.GetString(requestIDKey),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	profiles := make([]query.ProfileDTO, 0, len(res.Profiles))
	for _, p := range res.Profiles {
		profiles = append(profiles, query.NewProfileDTO(p))
	}
	respondWithMeta(c, http.StatusCreated, profiles, &ResponseMeta{TotalCount: len(profiles)})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
