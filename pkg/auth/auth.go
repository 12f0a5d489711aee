package auth

import (
	"context"
	"os"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleStaff  = "staff"
	RoleMember = "member"
)

var JWTKey = []byte(jwtKeyFromEnv())

func jwtKeyFromEnv() string {
	if k := os.Getenv("JWT_KEY"); k != "" {
		return k
	}
	return "simple-library-dev-key"
}

type Profile struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	MemberID int64  `json:"memberId"`
}

type Claims struct {
	Profile Profile `json:"profile"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

type authInfo struct {
	username string
	role     string
	memberID int64
}

func SetAuthContext(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, authInfo{
		username: p.Username,
		role:     p.Role,
		memberID: p.MemberID,
	})
}

func Username(ctx context.Context) string {
	info, _ := ctx.Value(ctxKey{}).(authInfo)
	return info.username
}

func MemberID(ctx context.Context) int64 {
	info, _ := ctx.Value(ctxKey{}).(authInfo)
	return info.memberID
}

func IsStaff(ctx context.Context) bool {
	info, _ := ctx.Value(ctxKey{}).(authInfo)
	return info.role == RoleStaff
}
