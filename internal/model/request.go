package model

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Team       string `json:"team"`
	AccessCode string `json:"accessCode"`
}

type VerifyAccessCodeRequest struct {
	Code string `json:"code"`
}

type DeleteByIDRequest struct {
	ID int64 `json:"id"`
}

type AdminCreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	UseDemoSalt bool   `json:"useDemoSalt"`
	CustomSalt  string `json:"customSalt"`
}

// AdminUpdateUserRequest leaves nil fields untouched.
type AdminUpdateUserRequest struct {
	Role  *string `json:"role"`
	Email *string `json:"email"`
	Team  *string `json:"team"`
}

type UpdateProfileRequest struct {
	Team string `json:"team"`
}

type SetRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}
