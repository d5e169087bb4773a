package launch_args

import (
	"crypto/md5"
	"github.com/google/uuid"
	"strings"
)

type AccountKind string

const (
	AccountMicrosoft AccountKind = "Microsoft"
	AccountYggdrasil AccountKind = "Yggdrasil"
	AccountOffline   AccountKind = "Offline"
)

// Account is the identity supplied by the account collaborator.
type Account struct {
	Username    string      `yaml:"username" json:"username"`
	UUID        string      `yaml:"uuid" json:"uuid"`
	AccessToken string      `yaml:"accessToken" json:"-"`
	Kind        AccountKind `yaml:"kind" json:"kind"`
	XUID        string      `yaml:"xuid" json:"xuid,omitempty"`
	ClientID    string      `yaml:"clientId" json:"client_id,omitempty"`

	// AuthServerURL is the Yggdrasil API root passed to the auth agent.
	AuthServerURL string `yaml:"authServerUrl" json:"auth_server_url,omitempty"`
}

// UserType is the value of ${user_type} for the account kind.
func (a Account) UserType() string {
	switch a.Kind {
	case AccountMicrosoft:
		return "msa"
	case AccountYggdrasil:
		return "mojang"
	}
	return "legacy"
}

// OfflineAccount derives the same UUID the vanilla server uses for an
// unauthenticated player name.
func OfflineAccount(name string) Account {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	id, _ := uuid.FromBytes(sum[:])
	return Account{
		Username:    name,
		UUID:        id.String(),
		AccessToken: "0",
		Kind:        AccountOffline,
	}
}

// undashed formats a uuid the way the game expects it on the command line.
func undashed(s string) string {
	if id, err := uuid.Parse(s); err == nil {
		s = id.String()
	}
	return strings.ReplaceAll(s, "-", "")
}
