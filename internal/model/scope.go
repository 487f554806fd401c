package model

// Capability strings a bot credential can carry. Matching is exact.
const (
	ScopeAlarmsRead     = "alarms:read"
	ScopeAlarmsWrite    = "alarms:write"
	ScopeBriefingsRead  = "briefings:read"
	ScopeBriefingsWrite = "briefings:write"
	ScopeSettingsRead   = "settings:read"
	ScopeSettingsWrite  = "settings:write"
)

// DefaultBotScopes is the set granted to every pairing at creation.
func DefaultBotScopes() []string {
	return []string{ScopeAlarmsRead, ScopeAlarmsWrite, ScopeBriefingsWrite, ScopeSettingsRead}
}
