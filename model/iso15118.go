package model

import "time"

// Iso15118State carries ISO 15118 Plug & Charge provisioning and state. The
// backend sends it to provision a CP and the CP sends it to report state.
type Iso15118State struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
	// Enabled is true when Plug & Charge is active.
	Enabled    bool               `json:"enabled"`
	Secc       *SeccSection       `json:"secc,omitempty"`
	TrustRoots *TrustRootsSection `json:"trustRoots,omitempty"`
}

// Validate checks the provisioning state.
func (s Iso15118State) Validate() error {
	return validateStruct(s)
}

// SeccSection is the certificate chain the CP presents to the EV during
// mutual TLS. All certificates are PEM encoded.
type SeccSection struct {
	InstalledSecc []string `json:"installedSecc,omitempty"`
	// ToInstallSecc is ordered leaf to root.
	ToInstallSecc []string `json:"toInstallSecc,omitempty"`
	CsrPem        *string  `json:"csrPem,omitempty"`
}

// InstallMode says whether new trust roots are merged or replace the
// existing ones.
type InstallMode string

const (
	InstallAddAndKeepExisting InstallMode = "addAndKeepExisting"
	InstallReplaceExisting    InstallMode = "replaceExisting"
)

// TrustRootsSection lists the trust anchors on both sides of the link: MO
// roots trusted by the CP and V2G roots trusted by the EV.
type TrustRootsSection struct {
	TrustedByCPRoots  []string     `json:"trustedByCpRoots,omitempty"`
	TrustedByCarRoots []string     `json:"trustedByCarRoots,omitempty"`
	InstallTrustOnCP  []string     `json:"installTrustOnCp,omitempty"`
	InstallTrustOnCar []string     `json:"installTrustOnCar,omitempty"`
	CPInstallMode     *InstallMode `json:"cpInstallMode,omitempty" validate:"omitempty,oneof=addAndKeepExisting replaceExisting"`
	CarInstallMode    *InstallMode `json:"carInstallMode,omitempty" validate:"omitempty,oneof=addAndKeepExisting replaceExisting"`
}

// Iso15118Trigger asks the CP to act on a CSR template.
type Iso15118Trigger struct {
	Timestamp       time.Time `json:"timestamp" validate:"required"`
	SignCsrTemplate bool      `json:"signCsrTemplate"`
	CsrTemplatePem  string    `json:"csrTemplatePem" validate:"required"`
}

// Validate checks the trigger.
func (t Iso15118Trigger) Validate() error {
	return validateStruct(t)
}
