package model

import "time"

// SmartCapabilities declares the smart capabilities and configuration of a
// Charge Point. It is the full state reported by the CP.
//
// Fields named Supported and Max* are capability declarations owned by the
// CP and must not be overridden by the backend. The remaining fields are
// configuration the backend may change when Supported is true.
type SmartCapabilities struct {
	FirmwareUpdate        *FirmwareUpdate        `json:"firmwareUpdate,omitempty"`
	PowerLimiting         *PowerLimiting         `json:"powerLimiting,omitempty"`
	FactoryReset          *FactoryReset          `json:"factoryReset,omitempty"`
	OfflineTransactions   *OfflineTransactions   `json:"offlineTransactions,omitempty"`
	LogStreaming          *LogStreaming          `json:"logStreaming,omitempty"`
	CriticalErrorSnapshot *CriticalErrorSnapshot `json:"criticalErrorSnapshot,omitempty"`
	ReverseSSH            *ReverseSSH            `json:"reverseSsh,omitempty"`
	// SmartCharging is ignored by the CP when Supported is false.
	SmartCharging *SmartCharging `json:"smartCharging,omitempty"`
}

// Validate checks the field constraints of the whole tree.
func (c SmartCapabilities) Validate() error {
	return validateStruct(c)
}

// PowerLimiting lets the backend configure current limits on the CP.
type PowerLimiting struct {
	Supported bool `json:"supported"`
	// LimitSumAllPhases is the effective limit in W.
	LimitSumAllPhases *int `json:"limitSumAllPhases,omitempty" validate:"omitempty,gte=0"`
	LimitPhase1       *int `json:"limitPhase1,omitempty" validate:"omitempty,gte=0"`
	LimitPhase2       *int `json:"limitPhase2,omitempty" validate:"omitempty,gte=0"`
	LimitPhase3       *int `json:"limitPhase3,omitempty" validate:"omitempty,gte=0"`
	// MaxLimitPerPhase is the hardware maximum per phase.
	MaxLimitPerPhase *int `json:"maxLimitPerPhase,omitempty" validate:"omitempty,gte=0"`
	PhasesAvailable  int  `json:"phasesAvailable" validate:"omitempty,gte=1,lte=3"`
}

// ResetType is when a requested reset takes effect.
type ResetType string

const (
	ResetImmediate          ResetType = "immediate"
	ResetOnIdle             ResetType = "onIdle"
	ResetManualConfirmation ResetType = "manualConfirmation"
)

// FactoryReset enables backend-triggered factory resets.
type FactoryReset struct {
	Supported      bool        `json:"supported"`
	SupportedTypes []ResetType `json:"supportedTypes,omitempty" validate:"dive,oneof=immediate onIdle manualConfirmation"`
}

// RfidMode is the backend policy for RFID cards while offline.
type RfidMode string

const (
	RfidAcceptAll             RfidMode = "acceptAll"
	RfidBlockAll              RfidMode = "blockAll"
	RfidReplayKnownElseAccept RfidMode = "replayKnownElseAccept"
	RfidReplayKnownElseBlock  RfidMode = "replayKnownElseBlock"
)

// EmaidMode is the offline policy for Plug & Charge contracts. ISO 15118
// contracts need online validation, so rejectAll is the only value.
type EmaidMode string

const EmaidRejectAll EmaidMode = "rejectAll"

// OfflineTransactions describes how the CP handles sessions while offline.
type OfflineTransactions struct {
	Supported bool       `json:"supported"`
	RfidMode  *RfidMode  `json:"rfidMode,omitempty" validate:"omitempty,oneof=acceptAll blockAll replayKnownElseAccept replayKnownElseBlock"`
	EmaidMode *EmaidMode `json:"emaidMode,omitempty" validate:"omitempty,oneof=rejectAll"`
	// MaxOfflineSessions is how many sessions the CP buffers while offline.
	MaxOfflineSessions int `json:"maxOfflineSessions" validate:"gte=0"`
}

// LogFilterType is the minimum level of streamed log lines.
type LogFilterType string

const (
	LogFilterTrace LogFilterType = "trace"
	LogFilterDebug LogFilterType = "debug"
	LogFilterInfo  LogFilterType = "info"
	LogFilterWarn  LogFilterType = "warn"
	LogFilterError LogFilterType = "error"
	LogFilterFatal LogFilterType = "fatal"
)

// LogStreaming forwards CP logs to the backend in real time.
type LogStreaming struct {
	Supported bool `json:"supported"`
	// SupportedFilterTypes is empty when the CP decides what to stream.
	SupportedFilterTypes []LogFilterType `json:"supportedFilterTypes,omitempty" validate:"dive,oneof=trace debug info warn error fatal"`
	CurrentlyStreaming   bool            `json:"currentlyStreaming"`
	StartedStreaming     *time.Time      `json:"startedStreaming,omitempty"`
	// MaximalStreamingDurationInHours defaults to 1 on most firmwares.
	MaximalStreamingDurationInHours int `json:"maximalStreamingDurationInHours" validate:"gte=0"`
}

// CriticalErrorSnapshot sends the log lines around a critical failure.
type CriticalErrorSnapshot struct {
	Supported   bool `json:"supported"`
	LinesBefore int  `json:"linesBefore" validate:"gte=0"`
	LinesAfter  int  `json:"linesAfter" validate:"gte=0"`
	Enabled     bool `json:"enabled"`
}

// ReverseSSH declares support for a reverse SSH tunnel to the backend.
type ReverseSSH struct {
	Supported bool `json:"supported"`
	// MaxSessionSeconds is the CP-owned safety limit, e.g. 900.
	MaxSessionSeconds       int        `json:"maxSessionSeconds" validate:"gte=0"`
	Available               bool       `json:"available"`
	SSHUser                 string     `json:"sshUser,omitempty"`
	TargetHost              string     `json:"targetHost,omitempty"`
	TargetPort              int        `json:"targetPort,omitempty" validate:"omitempty,gte=1,lte=65535"`
	SessionID               string     `json:"sessionId,omitempty"`
	LastTunnelUptimeSeconds *int       `json:"lastTunnelUptimeSeconds,omitempty"`
	LastSessionTimestamp    *time.Time `json:"lastSessionTimestamp,omitempty"`
	LastFailureReason       *string    `json:"lastFailureReason,omitempty"`
}

// EnergyInputMode selects the energy sources a window may draw from.
type EnergyInputMode string

const (
	EnergySolarAndGrid     EnergyInputMode = "solarAndGrid"
	EnergyMatchSolarOutput EnergyInputMode = "matchSolarOutput"
)

// SmartCharging holds backend-managed time windows with randomized delays
// and energy source restrictions.
type SmartCharging struct {
	Supported bool `json:"supported"`
	// Windows are evaluated in order and the first match wins.
	Windows []SmartChargingWindow `json:"windows,omitempty" validate:"dive"`
}

// ActiveWindow returns the first window that contains t, or nil. t is
// interpreted in its own location, which should be the CP local zone.
func (s *SmartCharging) ActiveWindow(t time.Time) *SmartChargingWindow {
	if s == nil {
		return nil
	}
	for i := range s.Windows {
		if s.Windows[i].Contains(t) {
			return &s.Windows[i]
		}
	}
	return nil
}

// SmartChargingWindow is a time window in CP local time.
type SmartChargingWindow struct {
	// Day is nil for every day.
	Day *DayOfWeek `json:"day,omitempty" validate:"omitempty,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	// Start is inclusive. Nil start and end cover the whole day.
	Start *LocalTime `json:"start,omitempty"`
	// End is exclusive.
	End *LocalTime `json:"end,omitempty"`
	// RandomizedDelaySeconds, when positive, asks the CP to delay each
	// session started in this window by a random value in [0, n].
	RandomizedDelaySeconds *int             `json:"randomizedDelaySeconds,omitempty" validate:"omitempty,gte=0"`
	EnergyInput            *EnergyInputMode `json:"energyInput,omitempty" validate:"omitempty,oneof=solarAndGrid matchSolarOutput"`
	MaxSolarUsagePercent   *int             `json:"maxSolarUsagePercent,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// EffectiveEnergyInput returns EnergyInput, defaulting to solarAndGrid.
func (w SmartChargingWindow) EffectiveEnergyInput() EnergyInputMode {
	if w.EnergyInput == nil {
		return EnergySolarAndGrid
	}
	return *w.EnergyInput
}

// Contains reports whether t falls inside the window. A window with only a
// start runs to midnight; one with only an end starts at midnight. A start
// after the end wraps past midnight.
func (w SmartChargingWindow) Contains(t time.Time) bool {
	if w.Day != nil && !w.Day.Matches(t.Weekday()) {
		return false
	}
	now := LocalTimeOf(t).Seconds()
	start, end := 0, 24*3600
	if w.Start != nil {
		start = w.Start.Seconds()
	}
	if w.End != nil {
		end = w.End.Seconds()
	}
	if start <= end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

// FirmwareUpdate tracks firmware installation.
type FirmwareUpdate struct {
	Supported                    bool             `json:"supported"`
	SupportsHTTPFirmwareDownload bool             `json:"supportsHttpFirmwareDownload"`
	SupportsInlineFirmwarePush   bool             `json:"supportsInlineFirmwarePush"`
	CurrentFirmwareVersion       *string          `json:"currentFirmwareVersion,omitempty"`
	InstallFirmwareVersion       *string          `json:"installFirmwareVersion,omitempty"`
	InstallationLog              *InstallationLog `json:"installationLog,omitempty"`
}

// InstallationLog is the download, validation and flashing lifecycle.
type InstallationLog struct {
	Download     *DownloadPhase     `json:"download,omitempty"`
	Validation   *ValidationPhase   `json:"validation,omitempty"`
	Installation *InstallationPhase `json:"installation,omitempty"`
}

// DownloadStatus is the state of a firmware download.
type DownloadStatus string

const (
	DownloadDownloading DownloadStatus = "downloading"
	DownloadSuccess     DownloadStatus = "success"
	DownloadFailed      DownloadStatus = "failed"
)

// DownloadPhase is the progress of a firmware download.
type DownloadPhase struct {
	Status              *DownloadStatus `json:"status,omitempty" validate:"omitempty,oneof=downloading success failed"`
	DownloadedSizeBytes int64           `json:"downloadedSizeBytes" validate:"gte=0"`
	TotalSizeBytes      int64           `json:"totalSizeBytes" validate:"gte=0"`
}

// ValidationStatus is the state of a firmware image check.
type ValidationStatus string

const (
	ValidationIdle       ValidationStatus = "idle"
	ValidationValidating ValidationStatus = "validating"
	ValidationSuccess    ValidationStatus = "success"
	ValidationFailed     ValidationStatus = "failed"
	ValidationSkipped    ValidationStatus = "skipped"
)

// ValidationPhase records the integrity and authenticity checks of a
// downloaded firmware image.
type ValidationPhase struct {
	Status             *ValidationStatus `json:"status,omitempty" validate:"omitempty,oneof=idle validating success failed skipped"`
	ExpectedSha256Hash *string           `json:"expectedSha256Hash,omitempty"`
	ComputedSha256Hash *string           `json:"computedSha256Hash,omitempty"`
	ChecksumValidated  bool              `json:"checksumValidated"`
	SignatureValidated bool              `json:"signatureValidated"`
	// DigitalSignatureOverHash is base64 over ExpectedSha256Hash.
	DigitalSignatureOverHash *string `json:"digitalSignatureOverHash,omitempty"`
}

// InstallationStatus is the state of a firmware installation.
type InstallationStatus string

const (
	InstallationIdle       InstallationStatus = "idle"
	InstallationInstalling InstallationStatus = "installing"
	InstallationSuccess    InstallationStatus = "success"
	InstallationFailed     InstallationStatus = "failed"
)

// InstallationPhase is the progress of a firmware installation.
type InstallationPhase struct {
	Status *InstallationStatus `json:"status,omitempty" validate:"omitempty,oneof=idle installing success failed"`
	Detail *string             `json:"detail,omitempty"`
}
