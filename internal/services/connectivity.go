package services

import (
  "net/http"
  "sync"
  "time"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/utils"
)

// ConnectivityMonitor answers the single question the engine keeps asking:
// can we reach the narrative service right now? Offline behavior is a
// feature (pending reports), so the answer must be cheap and safe to poll.
type ConnectivityMonitor interface {
  IsOnline() bool
}

type probeMonitor struct {
  log        *logger.Logger
  httpClient *http.Client
  probeURL   string
  ttl        time.Duration

  mu        sync.Mutex
  lastCheck time.Time
  lastState bool
}

func NewConnectivityMonitor(log *logger.Logger) ConnectivityMonitor {
  serviceLog := log.With("service", "ConnectivityMonitor")
  probeURL := utils.GetEnv("CONNECTIVITY_PROBE_URL", "https://api.openai.com/v1", log)
  ttlSeconds := utils.GetEnvAsInt("CONNECTIVITY_PROBE_TTL", 15, log)
  return &probeMonitor{
    log: serviceLog,
    httpClient: &http.Client{
      Timeout: 3 * time.Second,
    },
    probeURL: probeURL,
    ttl:      time.Duration(ttlSeconds) * time.Second,
  }
}

func (m *probeMonitor) IsOnline() bool {
  m.mu.Lock()
  defer m.mu.Unlock()

  if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.ttl {
    return m.lastState
  }

  state := m.probe()
  m.lastCheck = time.Now()
  m.lastState = state
  return state
}

func (m *probeMonitor) probe() bool {
  req, err := http.NewRequest(http.MethodHead, m.probeURL, nil)
  if err != nil {
    return false
  }
  resp, err := m.httpClient.Do(req)
  if err != nil {
    m.log.Debug("Connectivity probe failed", "error", err)
    return false
  }
  defer resp.Body.Close()
  // Any HTTP answer means the network path is up; auth errors included
  return true
}

// StaticMonitor pins connectivity for tests and forced-offline operation.
type StaticMonitor struct {
  Online bool
}

func (s StaticMonitor) IsOnline() bool { return s.Online }
