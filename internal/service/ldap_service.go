package service

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"hpc-portal/internal/pkg/config"
	pkgErrors "hpc-portal/pkg/errors"
)

// LDAPEntry 目录中查到的外部账号
type LDAPEntry struct {
	Username    string
	Email       string
	DisplayName string
}

type LDAPService interface {
	Authenticate(username, password string) (*LDAPEntry, error)
}

type ldapService struct {
	cfg *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) LDAPService {
	return &ldapService{cfg: cfg}
}

func (s *ldapService) Authenticate(username, password string) (*LDAPEntry, error) {
	if !s.cfg.Enabled {
		return nil, pkgErrors.New(pkgErrors.CodeAuthError, "LDAP认证未启用")
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entry, err := s.searchUser(conn, username)
	if err != nil {
		return nil, err
	}

	// 用户自己的凭据再绑定一次
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, pkgErrors.ErrInvalidCredentials
	}

	attrs := s.cfg.Attributes
	return &LDAPEntry{
		Username:    username,
		Email:       entry.GetAttributeValue(attrs.Email),
		DisplayName: entry.GetAttributeValue(attrs.DisplayName),
	}, nil
}

func (s *ldapService) connect() (*ldap.Conn, error) {
	scheme := "ldap"
	if s.cfg.UseSSL {
		scheme = "ldaps"
	}
	conn, err := ldap.DialURL(fmt.Sprintf("%s://%s:%d", scheme, s.cfg.Host, s.cfg.Port))
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeAuthError, pkgErrors.ErrLDAPConnectionFailed.Message, err)
	}

	if s.cfg.BindDN != "" {
		if err := conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
			conn.Close()
			return nil, pkgErrors.Wrap(pkgErrors.CodeAuthError, "LDAP绑定失败", err)
		}
	}
	return conn, nil
}

func (s *ldapService) searchUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	attrs := s.cfg.Attributes
	request := ldap.NewSearchRequest(
		s.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, 0, false,
		fmt.Sprintf(s.cfg.UserFilter, ldap.EscapeFilter(username)),
		[]string{attrs.Username, attrs.Email, attrs.DisplayName},
		nil,
	)

	result, err := conn.Search(request)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeAuthError, "LDAP搜索失败", err)
	}
	switch len(result.Entries) {
	case 0:
		return nil, pkgErrors.ErrInvalidCredentials
	case 1:
		return result.Entries[0], nil
	default:
		return nil, pkgErrors.New(pkgErrors.CodeAuthError, "找到多个匹配的用户")
	}
}

