package model

type AuditActor struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type AuditEntry struct {
	Action     string     `json:"action"`
	OccurredAt string     `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Resource   string     `json:"resource,omitempty"`
	Details    any        `json:"details,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type AuditQuery struct {
	Action  string
	ActorID int64
	Status  string
	From    string
	To      string
	Page    int
	Limit   int
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"

	AuditAuthLogin          = "auth.login"
	AuditAuthLogout         = "auth.logout"
	AuditAuthRegister       = "auth.register"
	AuditAccessCodeGenerate = "access_code.generate"
	AuditAccessCodeDelete   = "access_code.delete"
	AuditUserCreate         = "user.create"
	AuditUserUpdate         = "user.update"
	AuditUserDelete         = "user.delete"
	AuditUserProfile        = "user.profile"
	AuditRolePermissions    = "role.permissions"
)
