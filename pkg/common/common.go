package common

import (
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
	NA       = "N/A"
)

var (
	snowNode     *snowflake.Node
	snowNodeOnce sync.Once
)

func idNode() *snowflake.Node {
	snowNodeOnce.Do(func() {
		node, err := snowflake.NewNode(1)
		if err != nil {
			zap.S().Panic(err)
		}
		snowNode = node
	})
	return snowNode
}

// UUIDint64 returns a new snowflake id.
func UUIDint64() int64 {
	return idNode().Generate().Int64()
}

// HashPassword hashes a plain password with bcrypt.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches the bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

func IsNotEmpty(s string) bool {
	return !IsEmpty(s)
}

// IfEmptyStr returns defval when src is blank.
func IfEmptyStr(src string, defval string) string {
	if IsEmpty(src) {
		return defval
	}
	return src
}

// ParseDate accepts the loose date formats dateparse understands
// ("2024-01-31", "2024-01-31T10:00:00Z", "01/31/2024", ...) in local time.
func ParseDate(s string) (time.Time, error) {
	return dateparse.ParseIn(strings.TrimSpace(s), time.Local)
}

// EndOfDay moves t to the last nanosecond of its calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
