package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"camwrapper/internal/camera"
	"camwrapper/internal/fixup"
)

// maxParametersSize はパラメータ本文の上限
const maxParametersSize = 64 << 10

// Handler は検証用APIの実装
type Handler struct {
	vendorID string
	module   *camera.Module
	fixer    *fixup.Fixer
}

// HealthResponse はヘルスチェックの応答
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態の応答
type StatusResponse struct {
	Status    string    `json:"status"`
	Vendor    string    `json:"vendor"`
	Cameras   int       `json:"cameras"`
	Sessions  int       `json:"sessions"`
	Timestamp time.Time `json:"timestamp"`
}

// CameraInfo はカメラ1台分の情報
type CameraInfo struct {
	ID          int    `json:"id"`
	Facing      string `json:"facing"`
	Orientation int    `json:"orientation"`
}

// CamerasResponse はカメラ一覧の応答
type CamerasResponse struct {
	Cameras []CameraInfo `json:"cameras"`
}

// SessionResponse はセッション1件分の情報
type SessionResponse struct {
	ID       string    `json:"id"`
	CameraID int       `json:"camera_id"`
	OpenedAt time.Time `json:"opened_at"`
}

// SessionsResponse はセッション一覧の応答
type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// ErrorResponse はエラー応答
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:    "running",
		Vendor:    h.vendorID,
		Cameras:   h.module.NumberOfCameras(),
		Sessions:  len(h.module.Sessions()),
		Timestamp: time.Now(),
	})
}

// GetCameras はカメラ一覧取得エンドポイントの実装
func (h *Handler) GetCameras(c *gin.Context) {
	n := h.module.NumberOfCameras()
	cameras := make([]CameraInfo, 0, n)

	for id := 0; id < n; id++ {
		info, err := h.module.CameraInfo(id)
		if err != nil {
			respondError(c, http.StatusBadGateway, "camera_info_failed", err.Error())
			return
		}
		cameras = append(cameras, CameraInfo{
			ID:          id,
			Facing:      info.Facing.String(),
			Orientation: info.Orientation,
		})
	}

	c.JSON(http.StatusOK, CamerasResponse{Cameras: cameras})
}

// OpenSession はカメラセッションを開く
func (h *Handler) OpenSession(c *gin.Context) {
	s, err := h.module.OpenSession(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, camera.ErrInvalidArgument):
			respondError(c, http.StatusBadRequest, "invalid_camera", err.Error())
		case errors.Is(err, camera.ErrResourceExhausted):
			respondError(c, http.StatusServiceUnavailable, "too_many_sessions", err.Error())
		default:
			respondError(c, http.StatusBadGateway, "vendor_open_failed", err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(s.Info()))
}

// GetSessions はセッション一覧を返す
func (h *Handler) GetSessions(c *gin.Context) {
	infos := h.module.Sessions()
	sessions := make([]SessionResponse, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, toSessionResponse(info))
	}

	c.JSON(http.StatusOK, SessionsResponse{Sessions: sessions})
}

// CloseSession はセッションを閉じる
func (h *Handler) CloseSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Close(); err != nil {
		respondError(c, http.StatusBadGateway, "vendor_close_failed", err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// GetParameters は書き換え後のパラメータを返す
func (h *Handler) GetParameters(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	c.String(http.StatusOK, s.GetParameters())
}

// SetParameters は本文のパラメータを書き換えてベンダーに設定する
func (h *Handler) SetParameters(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	body, ok := readBody(c)
	if !ok {
		return
	}

	if err := s.SetParameters(body); err != nil {
		respondError(c, http.StatusBadGateway, "vendor_set_parameters_failed", err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// RunAction はプレビューや撮影などの操作を転送する
func (h *Handler) RunAction(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var err error
	switch action := c.Param("action"); action {
	case "start-preview":
		err = s.StartPreview()
	case "stop-preview":
		s.StopPreview()
	case "start-recording":
		err = s.StartRecording()
	case "stop-recording":
		s.StopRecording()
	case "auto-focus":
		err = s.AutoFocus()
	case "cancel-auto-focus":
		err = s.CancelAutoFocus()
	case "take-picture":
		err = s.TakePicture()
	case "cancel-picture":
		err = s.CancelPicture()
	case "release":
		s.Release()
	default:
		respondError(c, http.StatusNotFound, "unknown_action", "不明な操作です: "+action)
		return
	}

	if err != nil {
		respondError(c, http.StatusBadGateway, "vendor_action_failed", err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// Dump はベンダーデバイスの状態を出力する
func (h *Handler) Dump(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.Dump(&buf); err != nil {
		respondError(c, http.StatusBadGateway, "vendor_dump_failed", err.Error())
		return
	}

	c.String(http.StatusOK, buf.String())
}

// Fixup は本文のパラメータに書き換えのみを適用する
func (h *Handler) Fixup(c *gin.Context) {
	dir, err := fixup.ParseDirection(c.Param("direction"))
	if err != nil {
		respondError(c, http.StatusNotFound, "unknown_direction", err.Error())
		return
	}

	body, ok := readBody(c)
	if !ok {
		return
	}

	c.String(http.StatusOK, h.fixer.Apply(dir, body))
}

// session はパスのセッションIDからセッションを取得する
func (h *Handler) session(c *gin.Context) (*camera.Session, bool) {
	s, ok := h.module.Session(c.Param("sid"))
	if !ok {
		respondError(c, http.StatusNotFound, "session_not_found", "指定されたセッションが見つかりません")
		return nil, false
	}
	return s, true
}

// ヘルパー関数

func readBody(c *gin.Context) (string, bool) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxParametersSize+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return "", false
	}
	if len(data) > maxParametersSize {
		respondError(c, http.StatusRequestEntityTooLarge, "body_too_large",
			"パラメータが大きすぎます（上限 "+strconv.Itoa(maxParametersSize)+" バイト）")
		return "", false
	}
	return string(data), true
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func toSessionResponse(info camera.SessionInfo) SessionResponse {
	return SessionResponse{
		ID:       info.ID,
		CameraID: info.CameraID,
		OpenedAt: info.OpenedAt,
	}
}
