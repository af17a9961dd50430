package resilience

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// MarshalText renders the level by name.
func (l DegradationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// DegradationConfig holds the error-rate thresholds (0.0-1.0) for each level.
type DegradationConfig struct {
	DegradedThreshold   float64       `json:"degraded_threshold"`
	CriticalThreshold   float64       `json:"critical_threshold"`
	EmergencyThreshold  float64       `json:"emergency_threshold"`
	MinSamples          int64         `json:"min_samples"`           // Requests needed before leaving normal
	MaxDegradedDuration time.Duration `json:"max_degraded_duration"` // Max time in degraded state before emergency
}

// DefaultDegradationConfig returns sensible defaults
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		MinSamples:          4,
		MaxDegradedDuration: 10 * time.Minute,
	}
}

// ServiceHealth is the observed health of one external collaborator.
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime time.Time        `json:"last_error_time,omitempty"`
	DegradedSince *time.Time       `json:"degraded_since,omitempty"`
	StatusMessage string           `json:"status_message"`
}

// DegradationManager tracks collaborator health (generation providers, feeds, market data,
// availability checks, mail). It only observes; fallbacks are decided by callers.
type DegradationManager struct {
	config   DegradationConfig
	services map[string]*ServiceHealth
	mutex    sync.RWMutex
}

// NewDegradationManager creates a new degradation manager
func NewDegradationManager(config DegradationConfig) *DegradationManager {
	return &DegradationManager{
		config:   config,
		services: make(map[string]*ServiceHealth),
	}
}

// RegisterService starts tracking a collaborator.
func (dm *DegradationManager) RegisterService(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if _, exists := dm.services[serviceName]; exists {
		return
	}
	dm.services[serviceName] = &ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		StatusMessage: "Service is healthy",
	}

	slog.Debug("Registered service for degradation management", "service", serviceName)
}

// RecordResult records the outcome of one collaborator call. Unregistered services are registered
// on first use.
func (dm *DegradationManager) RecordResult(serviceName string, err error) {
	if dm == nil {
		return
	}
	dm.RegisterService(serviceName)

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service := dm.services[serviceName]
	service.TotalRequests++
	if err != nil {
		service.ErrorCount++
		service.LastError = err.Error()
		service.LastErrorTime = time.Now()
	}
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)

	dm.updateDegradationLevel(service)
}

// updateDegradationLevel updates the degradation level based on current metrics
func (dm *DegradationManager) updateDegradationLevel(service *ServiceHealth) {
	oldLevel := service.Level
	now := time.Now()

	var newLevel DegradationLevel
	var statusMessage string

	switch {
	case service.TotalRequests < dm.config.MinSamples && service.ErrorCount < service.TotalRequests:
		newLevel = LevelNormal
		statusMessage = "Service is healthy"
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		newLevel = LevelEmergency
		statusMessage = "Service is in emergency state - high error rate"
	case service.ErrorRate >= dm.config.CriticalThreshold:
		newLevel = LevelCritical
		statusMessage = "Service is in critical state - elevated error rate"
	case service.ErrorRate >= dm.config.DegradedThreshold:
		newLevel = LevelDegraded
		statusMessage = "Service is degraded - moderate error rate"
	default:
		newLevel = LevelNormal
		statusMessage = "Service is healthy"
	}

	// Handle degraded duration timeout
	if newLevel == LevelDegraded && service.DegradedSince != nil {
		if now.Sub(*service.DegradedSince) > dm.config.MaxDegradedDuration {
			newLevel = LevelEmergency
			statusMessage = "Service has been degraded too long - entering emergency state"
		}
	}

	if newLevel == LevelDegraded && oldLevel != LevelDegraded {
		service.DegradedSince = &now
	} else if newLevel != LevelDegraded {
		service.DegradedSince = nil
	}

	service.Level = newLevel
	service.StatusMessage = statusMessage

	if oldLevel != newLevel {
		slog.Warn("Service degradation level changed",
			"service", service.ServiceName,
			"old_level", oldLevel.String(),
			"new_level", newLevel.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}

// GetServiceHealth returns a copy of the health status of a service
func (dm *DegradationManager) GetServiceHealth(serviceName string) (ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return ServiceHealth{}, false
	}
	return *service, true
}

// GetAllServiceHealth returns copies of every tracked service, ordered by name.
func (dm *DegradationManager) GetAllServiceHealth() []ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make([]ServiceHealth, 0, len(dm.services))
	for _, service := range dm.services {
		result = append(result, *service)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ServiceName < result[j].ServiceName })
	return result
}

// IsServiceAvailable reports false only for services in the emergency state. Unknown services are
// assumed available.
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return true
	}
	return service.Level != LevelEmergency
}

// OverallLevel returns the worst level across services.
func (dm *DegradationManager) OverallLevel() DegradationLevel {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	worst := LevelNormal
	for _, service := range dm.services {
		if service.Level > worst {
			worst = service.Level
		}
	}
	return worst
}

// ResetService resets a service's health status
func (dm *DegradationManager) ResetService(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if service, exists := dm.services[serviceName]; exists {
		*service = ServiceHealth{
			ServiceName:   serviceName,
			Level:         LevelNormal,
			StatusMessage: "Service is healthy",
		}
		slog.Info("Service health reset", "service", serviceName)
	}
}
