package service

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/repository"
	pkgErrors "hpc-portal/pkg/errors"
)

type InstitutionService interface {
	Create(actor *model.User, req *dto.CreateInstitutionRequest) (*dto.InstitutionResponse, error)
	GetByID(id int64) (*dto.InstitutionResponse, error)
	List() ([]*dto.InstitutionResponse, error)
	UpdatePolicy(actor *model.User, id int64, req *dto.UpdateInstitutionPolicyRequest) (*dto.InstitutionResponse, error)
	// MatchEmail 按邮箱/用户名的注册域名匹配机构, 未匹配返回 nil
	MatchEmail(email string) (*model.Institution, error)
	// LoadSeed 从 YAML 文件导入机构, 按名称覆盖
	LoadSeed(fs afero.Fs, path string) (int, error)
}

type institutionService struct {
	repo   repository.InstitutionRepository
	access accessChecker
	logger *zap.Logger
}

func NewInstitutionService(repo repository.InstitutionRepository, grantRepo repository.RoleGrantRepository, logger *zap.Logger) InstitutionService {
	return &institutionService{
		repo:   repo,
		access: accessChecker{grantRepo: grantRepo},
		logger: logger,
	}
}

func (s *institutionService) Create(actor *model.User, req *dto.CreateInstitutionRequest) (*dto.InstitutionResponse, error) {
	if err := s.access.require(actor, auth.PermInstitutionManage); err != nil {
		return nil, err
	}
	inst := newInstitution(req)
	if err := s.repo.Create(inst); err != nil {
		return nil, err
	}
	return toInstitutionResponse(inst), nil
}

func (s *institutionService) GetByID(id int64) (*dto.InstitutionResponse, error) {
	inst, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	return toInstitutionResponse(inst), nil
}

func (s *institutionService) List() ([]*dto.InstitutionResponse, error) {
	institutions, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	responses := make([]*dto.InstitutionResponse, len(institutions))
	for i, inst := range institutions {
		responses[i] = toInstitutionResponse(inst)
	}
	return responses, nil
}

func (s *institutionService) UpdatePolicy(actor *model.User, id int64, req *dto.UpdateInstitutionPolicyRequest) (*dto.InstitutionResponse, error) {
	if err := s.access.require(actor, auth.PermInstitutionManage); err != nil {
		return nil, err
	}
	inst, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req.NeedsFundingApproval != nil {
		inst.NeedsFundingApproval = *req.NeedsFundingApproval
	}
	if req.SeparateAllocationRequests != nil {
		inst.SeparateAllocationRequests = *req.SeparateAllocationRequests
	}
	if err := s.repo.Update(inst); err != nil {
		return nil, err
	}
	s.logger.Info("机构策略已更新",
		zap.String("institution", inst.Name),
		zap.Bool("needs_funding_approval", inst.NeedsFundingApproval),
		zap.Bool("separate_allocation_requests", inst.SeparateAllocationRequests),
		zap.String("operator", operatorName(actor)))
	return toInstitutionResponse(inst), nil
}

func (s *institutionService) MatchEmail(email string) (*model.Institution, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return nil, nil
	}
	host := strings.ToLower(strings.TrimSpace(email[at+1:]))

	// 先精确匹配, 再按注册域名匹配, 兼容 cs.swansea.ac.uk 之类的子域
	candidates := []string{host}
	if registered, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil && registered != host {
		candidates = append(candidates, registered)
	}
	for _, domain := range candidates {
		inst, err := s.repo.FindByDomain(domain)
		if err == nil {
			return inst, nil
		}
		if err != pkgErrors.ErrRecordNotFound {
			return nil, err
		}
	}
	return nil, nil
}

type seedFile struct {
	Institutions []dto.CreateInstitutionRequest `yaml:"institutions"`
}

func (s *institutionService) LoadSeed(fs afero.Fs, path string) (int, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, fmt.Errorf("读取机构文件失败: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("解析机构文件失败: %w", err)
	}

	for i := range seed.Institutions {
		req := &seed.Institutions[i]
		if req.Name == "" || req.BaseDomain == "" {
			return i, fmt.Errorf("第 %d 个机构缺少 name 或 base_domain", i+1)
		}
		if err := s.repo.Upsert(newInstitution(req)); err != nil {
			return i, err
		}
	}
	s.logger.Info("机构数据导入完成", zap.String("file", path), zap.Int("count", len(seed.Institutions)))
	return len(seed.Institutions), nil
}

func newInstitution(req *dto.CreateInstitutionRequest) *model.Institution {
	return &model.Institution{
		Name:                       strings.TrimSpace(req.Name),
		BaseDomain:                 strings.ToLower(strings.TrimSpace(req.BaseDomain)),
		IdentityProvider:           req.IdentityProvider,
		LogoPath:                   req.LogoPath,
		NeedsFundingApproval:       req.NeedsFundingApproval,
		SeparateAllocationRequests: req.SeparateAllocationRequests,
	}
}
