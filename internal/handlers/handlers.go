// Package handlers содержит HTTP и WebSocket обработчики для API панели
package handlers

import (
	"errors"
	"net/http"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"stream-dashboard/internal/cache"
	"stream-dashboard/internal/dashboard"
	"stream-dashboard/internal/metrics"
	"stream-dashboard/internal/models"
	"stream-dashboard/internal/render"
)

const (
	// DefaultObservationsCount размер страницы последних наблюдений
	DefaultObservationsCount = 50
	// MaxObservationsCount максимальный размер страницы
	MaxObservationsCount = 1000
	// MaxDatasetSize максимальный размер начального набора
	MaxDatasetSize = 10000
)

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	dash      *dashboard.Dashboard
	cache     *cache.RedisCache
	startTime time.Time
	upgrader  websocket.Upgrader
}

// NewHandler создает новый обработчик; cache может быть nil
func NewHandler(dash *dashboard.Dashboard, cache *cache.RedisCache) *Handler {
	return &Handler{
		dash:      dash,
		cache:     cache,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// route маршрут API
type route struct {
	path    string
	method  string
	handler http.HandlerFunc
}

// Register регистрирует маршруты API
func (h *Handler) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	registerRoutes(api, []route{
		{"/data", http.MethodGet, h.DataHandler},
		{"/observations", http.MethodGet, h.ObservationsHandler},
		{"/summary", http.MethodGet, h.SummaryHandler},
		{"/filters", http.MethodGet, h.GetFiltersHandler},
		{"/filters", http.MethodPut, h.PutFiltersHandler},
		{"/stream", http.MethodGet, h.StreamStatusHandler},
		{"/stream/toggle", http.MethodPost, h.ToggleStreamHandler},
		{"/stream/clear", http.MethodPost, h.ClearStreamHandler},
		{"/charts/{kind}/pointer", http.MethodPost, h.PointerHandler},
		{"/charts/{kind}/wheel", http.MethodPost, h.WheelHandler},
		{"/charts/{kind}/reset", http.MethodPost, h.ResetViewHandler},
		{"/charts/{kind}/bounds", http.MethodGet, h.BoundsHandler},
		{"/performance", http.MethodGet, h.PerformanceHandler},
		{"/performance/history", http.MethodGet, h.PerformanceHistoryHandler},
		{"/noise", http.MethodPost, h.NoiseHandler},
	})

	registerRoutes(router, []route{
		{"/charts/{kind:[a-z]+}.png", http.MethodGet, h.ChartImageHandler},
		{"/ws", http.MethodGet, h.WebsocketHandler},
		{"/health", http.MethodGet, h.HealthHandler},
		{"/stats", http.MethodGet, h.StatsHandler},
	})
}

// registerRoutes регистрирует маршруты и для каждого пути последним
// маршрут без метода, отвечающий 405 с заголовком Allow. Без него mux
// теряет несовпадение метода, если следующий маршрут не совпал по пути.
func registerRoutes(router *mux.Router, routes []route) {
	var paths []string
	allowed := make(map[string][]string)
	for _, rt := range routes {
		router.HandleFunc(rt.path, rt.handler).Methods(rt.method)
		if _, ok := allowed[rt.path]; !ok {
			paths = append(paths, rt.path)
		}
		allowed[rt.path] = append(allowed[rt.path], rt.method)
	}
	for _, path := range paths {
		router.HandleFunc(path, methodNotAllowed(allowed[path]))
	}
}

func methodNotAllowed(methods []string) http.HandlerFunc {
	allow := strings.Join(methods, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]string{
			"error": "method " + r.Method + " not allowed",
		})
	}
}

// DataHandler обрабатывает GET /api/data - начальный набор данных
func (h *Handler) DataHandler(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", dashboard.InitialDatasetSize, 1, MaxDatasetSize)
	h.respondJSON(w, models.DatasetResponse{Data: h.dash.InitialDataset(count)}, http.StatusOK)
}

// ObservationsResponse последние наблюдения, новые первыми
type ObservationsResponse struct {
	Source string               `json:"source"`
	Data   []models.Observation `json:"data"`
}

// ObservationsHandler обрабатывает GET /api/observations - последние наблюдения.
// Читает зеркало в Redis, при его недоступности буфер.
func (h *Handler) ObservationsHandler(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", DefaultObservationsCount, 1, MaxObservationsCount)

	if h.cache != nil {
		data, err := h.cache.LatestObservations(int64(count))
		if err == nil {
			metrics.CacheHits.Inc()
			h.respondJSON(w, ObservationsResponse{Source: "redis", Data: data}, http.StatusOK)
			return
		}
		metrics.CacheMisses.Inc()
	}

	data := h.dash.Buffer().Latest(count)
	slices.Reverse(data)
	h.respondJSON(w, ObservationsResponse{Source: "buffer", Data: data}, http.StatusOK)
}

// SummaryResponse текущий агрегированный ряд
type SummaryResponse struct {
	RequestID uint64                `json:"requestId"`
	Data      []models.SummaryPoint `json:"data"`
	LastError string                `json:"lastError,omitempty"`
}

// SummaryHandler обрабатывает GET /api/summary
func (h *Handler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	series, id := h.dash.Summary()
	h.respondJSON(w, SummaryResponse{
		RequestID: id,
		Data:      series,
		LastError: h.dash.Tracker().LastError(),
	}, http.StatusOK)
}

// GetFiltersHandler обрабатывает GET /api/filters
func (h *Handler) GetFiltersHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, h.dash.Filters(), http.StatusOK)
}

// PutFiltersHandler обрабатывает PUT /api/filters - замена фильтров
func (h *Handler) PutFiltersHandler(w http.ResponseWriter, r *http.Request) {
	cfg := h.dash.Filters()
	if err := decodeJSON(r, &cfg); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.dash.SetFilters(cfg); err != nil {
		h.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.cache != nil {
		if err := h.cache.SaveFilters(cfg); err != nil {
			metrics.CacheMisses.Inc()
		}
	}
	h.respondJSON(w, h.dash.Filters(), http.StatusOK)
}

// StreamStatusHandler обрабатывает GET /api/stream
func (h *Handler) StreamStatusHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, h.dash.Status(), http.StatusOK)
}

// ToggleStreamHandler обрабатывает POST /api/stream/toggle
func (h *Handler) ToggleStreamHandler(w http.ResponseWriter, r *http.Request) {
	h.dash.ToggleStreaming()
	h.respondJSON(w, h.dash.Status(), http.StatusOK)
}

// ClearStreamHandler обрабатывает POST /api/stream/clear?seed=N
func (h *Handler) ClearStreamHandler(w http.ResponseWriter, r *http.Request) {
	seed := queryInt(r, "seed", 0, 0, h.dash.Buffer().Cap())
	h.dash.Clear(seed)
	if h.cache != nil {
		_, _ = h.cache.IncrementCounter("clears")
	}
	h.respondJSON(w, h.dash.Status(), http.StatusOK)
}

// PointerRequest событие указателя на графике
type PointerRequest struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// WheelRequest событие колеса мыши на графике
type WheelRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

// PointerHandler обрабатывает POST /api/charts/{kind}/pointer
func (h *Handler) PointerHandler(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	bounds, err := h.dash.Pointer(chartKind(r), req.Action, req.X, req.Y)
	if err != nil {
		h.respondDashboardError(w, err)
		return
	}
	h.respondJSON(w, bounds, http.StatusOK)
}

// WheelHandler обрабатывает POST /api/charts/{kind}/wheel
func (h *Handler) WheelHandler(w http.ResponseWriter, r *http.Request) {
	var req WheelRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	bounds, err := h.dash.Wheel(chartKind(r), req.X, req.Y, req.DeltaY)
	if err != nil {
		h.respondDashboardError(w, err)
		return
	}
	h.respondJSON(w, bounds, http.StatusOK)
}

// ResetViewHandler обрабатывает POST /api/charts/{kind}/reset
func (h *Handler) ResetViewHandler(w http.ResponseWriter, r *http.Request) {
	kind := chartKind(r)
	if err := h.dash.ResetView(kind); err != nil {
		h.respondDashboardError(w, err)
		return
	}
	h.BoundsHandler(w, r)
}

// BoundsHandler обрабатывает GET /api/charts/{kind}/bounds
func (h *Handler) BoundsHandler(w http.ResponseWriter, r *http.Request) {
	bounds, err := h.dash.ChartBounds(chartKind(r))
	if err != nil {
		h.respondDashboardError(w, err)
		return
	}
	h.respondJSON(w, bounds, http.StatusOK)
}

// ChartImageHandler обрабатывает GET /charts/{kind}.png - последний кадр графика
func (h *Handler) ChartImageHandler(w http.ResponseWriter, r *http.Request) {
	kind := chartKind(r)
	if _, err := h.dash.Chart(kind); err != nil {
		h.respondDashboardError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.dash.WriteChartPNG(kind, w); err != nil {
		h.respondError(w, "Failed to encode chart: "+err.Error(), http.StatusInternalServerError)
	}
}

// PerformanceHandler обрабатывает GET /api/performance
func (h *Handler) PerformanceHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, h.dash.Performance(), http.StatusOK)
}

// PerformanceHistoryHandler обрабатывает GET /api/performance/history
func (h *Handler) PerformanceHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string][]int{"fps": h.dash.FPSHistory()}, http.StatusOK)
}

// NoiseRequest уровень шума генератора
type NoiseRequest struct {
	Level float64 `json:"level"`
}

// NoiseHandler обрабатывает POST /api/noise
func (h *Handler) NoiseHandler(w http.ResponseWriter, r *http.Request) {
	var req NoiseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	applied := h.dash.SetNoiseLevel(req.Level)
	h.respondJSON(w, NoiseRequest{Level: applied}, http.StatusOK)
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disconnected"
	if h.cache != nil && h.cache.Ping() == nil {
		redisStatus = "connected"
	}

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Redis:     redisStatus,
		Uptime:    time.Since(h.startTime).String(),
	}

	h.respondJSON(w, status, http.StatusOK)
}

// StatsHandler обрабатывает GET /stats - статистика сервиса
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	// Обновляем метрику горутин
	metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))

	h.respondJSON(w, h.dash.Stats(), http.StatusOK)
}

func chartKind(r *http.Request) render.ChartKind {
	return render.ChartKind(mux.Vars(r)["kind"])
}

// queryInt читает целый параметр запроса; некорректное или выходящее
// за [lo, hi] значение заменяется на def
func queryInt(r *http.Request, key string, def, lo, hi int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}

func decodeJSON(r *http.Request, dest interface{}) error {
	return sonic.ConfigDefault.NewDecoder(r.Body).Decode(dest)
}

// respondDashboardError сопоставляет ошибки панели HTTP-статусам
func (h *Handler) respondDashboardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, render.ErrUnknownChartKind):
		h.respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dashboard.ErrUnknownAction):
		h.respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, dashboard.ErrNoData):
		h.respondError(w, err.Error(), http.StatusConflict)
	default:
		h.respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(data)
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	h.respondJSON(w, map[string]string{"error": message}, status)
}
