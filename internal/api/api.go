package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yok-tottii/deck8-soundboard/internal/audio"
	"github.com/yok-tottii/deck8-soundboard/internal/codec"
	"github.com/yok-tottii/deck8-soundboard/internal/config"
	"github.com/yok-tottii/deck8-soundboard/internal/hotkey"
	"github.com/yok-tottii/deck8-soundboard/internal/library"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
	"github.com/yok-tottii/deck8-soundboard/internal/soundboard"
)

// Soundboard is the command surface served over HTTP.
// *soundboard.Board implements it.
type Soundboard interface {
	Config() *config.Config
	SaveConfig() error

	ListDevices() (audio.DeviceList, error)
	SetInputDevice(name string)
	SetOutputDevice(name string)

	StartPipeline() error
	StopPipeline() error
	Status() audio.Status

	Library() ([]library.Entry, [config.KeyCount]string)
	AddSound(source, displayName string) (library.Entry, error)
	AddSoundTrimmed(source, displayName string, startMs, endMs uint64) (library.Entry, error)
	RemoveSound(id string) error
	RenameSound(id, name string) error
	SetKeySound(key int, id string) error
	TriggerKey(key int) error
	PreviewSound(id string) error

	SetMicVolume(v float32) error
	SetSoundVolume(v float32) error

	Duration(path string) (uint64, error)
	PreviewTrim(path string, startMs, endMs uint64) error
}

// Handler manages API endpoints
type Handler struct {
	board            Soundboard
	onHotkeysChanged func() error // Callback to re-register hotkeys in main app
	log              *logger.Logger
}

// New creates a new API handler
func New(board Soundboard, onHotkeysChanged func() error, log *logger.Logger) *Handler {
	return &Handler{
		board:            board,
		onHotkeysChanged: onHotkeysChanged,
		log:              log,
	}
}

// RegisterRoutes registers all API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/pipeline", h.handlePipeline)
	mux.HandleFunc("/api/pipeline/start", h.handlePipelineStart)
	mux.HandleFunc("/api/pipeline/stop", h.handlePipelineStop)
	mux.HandleFunc("/api/volume", h.handleVolume)
	mux.HandleFunc("/api/sounds", h.handleSounds)
	mux.HandleFunc("/api/sounds/rename", h.handleSoundsRename)
	mux.HandleFunc("/api/sounds/preview", h.handleSoundsPreview)
	mux.HandleFunc("/api/keys", h.handleKeys)
	mux.HandleFunc("/api/keys/trigger", h.handleKeysTrigger)
	mux.HandleFunc("/api/keys/validate", h.handleKeysValidate)
	mux.HandleFunc("/api/audio/duration", h.handleAudioDuration)
	mux.HandleFunc("/api/audio/preview", h.handleAudioPreview)
}

// statusFor maps the error taxonomy to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, audio.ErrDeviceNotFound),
		errors.Is(err, config.ErrSoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, codec.ErrDecode),
		errors.Is(err, codec.ErrUnsupportedFormat),
		errors.Is(err, library.ErrEmptyTrim):
		return http.StatusUnprocessableEntity
	case errors.Is(err, config.ErrInvalidKey),
		errors.Is(err, soundboard.ErrInvalidVolume),
		errors.Is(err, library.ErrInvalidFilename):
		return http.StatusBadRequest
	case errors.Is(err, soundboard.ErrNoSound),
		errors.Is(err, soundboard.ErrDevicesNotSet):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// decode reads a JSON body; it answers 400 itself and reports false on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleSettings handles GET and PUT /api/settings
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.board.Config().Clone())
	case http.MethodPut:
		h.putSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// putSettings updates the configuration
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]interface{}
	if !decode(w, r, &updates) {
		return
	}

	// Devices and volumes have side effects on the pipeline and go through
	// their own endpoints.
	for _, key := range []string{"audio_input_device", "audio_output_device", "mic_volume", "sound_volume", "sound_library", "key_sounds"} {
		if _, ok := updates[key]; ok {
			http.Error(w, fmt.Sprintf("%s cannot be changed through /api/settings", key), http.StatusBadRequest)
			return
		}
	}

	// Validate against a copy so a rejected request changes nothing.
	trial := h.board.Config().Clone()
	if err := trial.Update(updates); err != nil {
		http.Error(w, fmt.Sprintf("Failed to update config: %v", err), http.StatusBadRequest)
		return
	}
	if _, ok := updates["key_bindings"]; ok {
		bindings, err := hotkey.FromConfig(trial.Bindings())
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid key_bindings: %v", err), http.StatusBadRequest)
			return
		}
		if dup := hotkey.DuplicateSlots(bindings); len(dup) > 0 {
			http.Error(w, fmt.Sprintf("Invalid key_bindings: keys %v repeat an earlier shortcut", dup), http.StatusBadRequest)
			return
		}
	}

	if err := h.board.Config().Update(updates); err != nil {
		http.Error(w, fmt.Sprintf("Failed to update config: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.board.SaveConfig(); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save config: %v", err), http.StatusInternalServerError)
		return
	}

	if _, ok := updates["key_bindings"]; ok && h.onHotkeysChanged != nil {
		if err := h.onHotkeysChanged(); err != nil {
			h.log.Warn("Failed to re-register hotkeys: %v", err)
			writeJSON(w, http.StatusOK, map[string]string{
				"status":  "partial",
				"message": fmt.Sprintf("Settings saved but hotkey reload failed: %v", err),
			})
			return
		}
	}

	writeSuccess(w)
}

type deviceRequest struct {
	InputDevice  *string `json:"input_device"`
	OutputDevice *string `json:"output_device"`
}

// handleDevices handles GET and POST /api/devices
func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		devices, err := h.board.ListDevices()
		if err != nil {
			h.writeError(w, r, fmt.Errorf("failed to list audio devices: %w", err))
			return
		}
		writeJSON(w, http.StatusOK, devices)

	case http.MethodPost:
		var req deviceRequest
		if !decode(w, r, &req) {
			return
		}
		if req.InputDevice != nil {
			h.board.SetInputDevice(*req.InputDevice)
		}
		if req.OutputDevice != nil {
			h.board.SetOutputDevice(*req.OutputDevice)
		}
		writeJSON(w, http.StatusOK, h.board.Status())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePipeline handles GET /api/pipeline
func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.board.Status())
}

// handlePipelineStart handles POST /api/pipeline/start
func (h *Handler) handlePipelineStart(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.board.StartPipeline(); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.board.Status())
}

// handlePipelineStop handles POST /api/pipeline/stop
func (h *Handler) handlePipelineStop(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.board.StopPipeline(); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.board.Status())
}

type volumeRequest struct {
	Mic   *float32 `json:"mic_volume"`
	Sound *float32 `json:"sound_volume"`
}

// handleVolume handles POST /api/volume
func (h *Handler) handleVolume(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req volumeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Mic != nil {
		if err := h.board.SetMicVolume(*req.Mic); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if req.Sound != nil {
		if err := h.board.SetSoundVolume(*req.Sound); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeSuccess(w)
}

// SoundList is the body of GET /api/sounds
type SoundList struct {
	Sounds    []library.Entry         `json:"sounds"`
	KeySounds [config.KeyCount]string `json:"key_sounds"`
}

type addSoundRequest struct {
	Path        string  `json:"path"`
	DisplayName string  `json:"display_name"`
	StartMs     *uint64 `json:"start_ms"`
	EndMs       *uint64 `json:"end_ms"`
}

// handleSounds handles GET, POST and DELETE /api/sounds
func (h *Handler) handleSounds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sounds, keys := h.board.Library()
		writeJSON(w, http.StatusOK, SoundList{Sounds: sounds, KeySounds: keys})

	case http.MethodPost:
		var req addSoundRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Path == "" || req.DisplayName == "" {
			http.Error(w, "path and display_name are required", http.StatusBadRequest)
			return
		}
		if (req.StartMs == nil) != (req.EndMs == nil) {
			http.Error(w, "start_ms and end_ms must be given together", http.StatusBadRequest)
			return
		}

		var entry library.Entry
		var err error
		if req.StartMs != nil {
			entry, err = h.board.AddSoundTrimmed(req.Path, req.DisplayName, *req.StartMs, *req.EndMs)
		} else {
			entry, err = h.board.AddSound(req.Path, req.DisplayName)
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.board.RemoveSound(id); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeSuccess(w)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type renameRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// handleSoundsRename handles POST /api/sounds/rename
func (h *Handler) handleSoundsRename(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req renameRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" || req.DisplayName == "" {
		http.Error(w, "id and display_name are required", http.StatusBadRequest)
		return
	}
	if err := h.board.RenameSound(req.ID, req.DisplayName); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

type idRequest struct {
	ID string `json:"id"`
}

// handleSoundsPreview handles POST /api/sounds/preview
func (h *Handler) handleSoundsPreview(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req idRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.board.PreviewSound(req.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

type keyRequest struct {
	Key     int     `json:"key"`
	SoundID *string `json:"sound_id"`
}

// handleKeys handles POST /api/keys; a null sound_id clears the key
func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req keyRequest
	if !decode(w, r, &req) {
		return
	}
	id := ""
	if req.SoundID != nil {
		id = *req.SoundID
	}
	if err := h.board.SetKeySound(req.Key, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

// handleKeysTrigger handles POST /api/keys/trigger
func (h *Handler) handleKeysTrigger(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req keyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.board.TriggerKey(req.Key); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

// handleKeysValidate handles POST /api/keys/validate
func (h *Handler) handleKeysValidate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req config.HotkeyConfig
	if !decode(w, r, &req) {
		return
	}

	binding, err := hotkey.BindingFor(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conflicts := hotkey.CheckConflicts(binding.Modifiers, binding.Key)

	conflictNames := []string{}
	for _, c := range conflicts {
		conflictNames = append(conflictNames, c.Name)
	}

	// Other pad keys using the same shortcut count as conflicts too.
	current := h.board.Config().Bindings()
	for i, b := range current {
		if b == req {
			conflictNames = append(conflictNames, fmt.Sprintf("Key %d", i+1))
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conflicts": conflictNames,
		"display":   hotkey.FormatBinding(binding),
	})
}

type pathRequest struct {
	Path    string `json:"path"`
	StartMs uint64 `json:"start_ms"`
	EndMs   uint64 `json:"end_ms"`
}

// handleAudioDuration handles POST /api/audio/duration
func (h *Handler) handleAudioDuration(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	ms, err := h.board.Duration(req.Path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"duration_ms": ms})
}

// handleAudioPreview handles POST /api/audio/preview
func (h *Handler) handleAudioPreview(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.board.PreviewTrim(req.Path, req.StartMs, req.EndMs); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w)
}
