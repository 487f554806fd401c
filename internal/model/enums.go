package model

type PairingStatus string

const (
	PairingStatusPending PairingStatus = "pending"
	PairingStatusActive  PairingStatus = "active"
	PairingStatusRevoked PairingStatus = "revoked"
	PairingStatusExpired PairingStatus = "expired"
)

type Actor string

const (
	ActorUser Actor = "user"
	ActorBot  Actor = "bot"
)

type AlarmManager string

const (
	AlarmManagedManual AlarmManager = "manual"
	AlarmManagedBot    AlarmManager = "bot"
)

var BriefingModes = []string{"none", "short", "standard", "auto"}
