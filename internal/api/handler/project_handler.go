package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	pkgErrors "hpc-portal/pkg/errors"
	"hpc-portal/pkg/utils"
)

type ProjectHandler struct {
	projectService    service.ProjectService
	allocationService service.AllocationService
	membershipService service.MembershipService
}

func NewProjectHandler(projectService service.ProjectService, allocationService service.AllocationService, membershipService service.MembershipService) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projectService,
		allocationService: allocationService,
		membershipService: membershipService,
	}
}

// Create 创建项目
// @Summary 提交项目申请
// @Description 创建人成为技术负责人并获得 project_owner, 随后向导师发送审批链接
// @Tags Project
// @Accept json
// @Produce json
// @Param request body dto.CreateProjectRequest true "创建项目请求"
// @Success 200 {object} utils.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects [post]
// @Security BearerAuth
func (h *ProjectHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, project)
}

// CreateWithAllocation 项目与资源申请一并提交
// @Summary 项目与首个资源申请一并提交
// @Description 仅当机构未要求单独提交资源申请时可用, 两者同时成功或同时失败
// @Tags Project
// @Accept json
// @Produce json
// @Param request body dto.CreateProjectWithAllocationRequest true "项目与资源申请"
// @Success 200 {object} utils.Response{data=dto.ProjectWithAllocationResponse}
// @Router /api/v1/projects/with-allocation [post]
// @Security BearerAuth
func (h *ProjectHandler) CreateWithAllocation(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateProjectWithAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	resp, err := h.projectService.CreateWithAllocation(c.Request.Context(), user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// List 项目列表
// @Summary 项目列表
// @Description 普通用户只能看到自己参与的项目
// @Tags Project
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "编号或标题"
// @Param status query int false "状态"
// @Param mine query bool false "仅我负责的项目"
// @Success 200 {object} utils.PageResponse{data=[]dto.ProjectResponse}
// @Router /api/v1/projects [get]
// @Security BearerAuth
func (h *ProjectHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var query dto.ProjectListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BindError(c, err)
		return
	}

	projects, total, err := h.projectService.List(user, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, projects, total, query.GetPage(), query.GetPageSize())
}

// GetByID 项目详情
// @Summary 项目详情
// @Tags Project
// @Produce json
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id} [get]
// @Security BearerAuth
func (h *ProjectHandler) GetByID(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(user, id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, project)
}

// AttachFunding 关联资助来源与成果
// @Summary 关联资助来源与成果
// @Tags Project
// @Accept json
// @Produce json
// @Param id path int true "项目ID"
// @Param request body dto.AttachFundingRequest true "资助来源与成果ID"
// @Success 200 {object} utils.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id}/attributions [post]
// @Security BearerAuth
func (h *ProjectHandler) AttachFunding(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.AttachFundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	project, err := h.projectService.AttachFunding(c.Request.Context(), user, id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, project)
}

// Decide 管理员审批项目
// @Summary 审批项目
// @Tags Project
// @Accept json
// @Produce json
// @Param id path int true "项目ID"
// @Param request body dto.DecisionRequest true "approve 或 decline"
// @Success 200 {object} utils.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id}/decision [post]
// @Security BearerAuth
func (h *ProjectHandler) Decide(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	project, err := h.projectService.Decide(c.Request.Context(), user, id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, project)
}

// Delete 删除项目
// @Summary 删除项目
// @Description 级联删除成员与资源申请, 负责人不再持有其他项目时收回 project_owner
// @Tags Project
// @Produce json
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/projects/{id} [delete]
// @Security BearerAuth
func (h *ProjectHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), user, id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// Invite 邀请成员
// @Summary 邀请已有用户加入项目
// @Tags Project
// @Accept json
// @Produce json
// @Param id path int true "项目ID"
// @Param request body dto.InviteMemberRequest true "被邀请人邮箱"
// @Success 200 {object} utils.Response{data=dto.MembershipResponse}
// @Router /api/v1/projects/{id}/invitations [post]
// @Security BearerAuth
func (h *ProjectHandler) Invite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	membership, err := h.membershipService.Invite(c.Request.Context(), user, id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, membership)
}

// CreateAllocation 提交资源申请
// @Summary 提交资源申请
// @Description 支持 JSON 或 multipart 表单, 表单可附带 document 文件
// @Tags Allocation
// @Accept json,mpfd
// @Produce json
// @Param id path int true "项目ID"
// @Param request body dto.CreateAllocationRequest true "资源申请"
// @Success 200 {object} utils.Response{data=dto.AllocationResponse}
// @Router /api/v1/projects/{id}/allocations [post]
// @Security BearerAuth
func (h *ProjectHandler) CreateAllocation(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	var req dto.CreateAllocationRequest
	var doc *service.DocumentUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			utils.BindError(c, err)
			return
		}
		if fh, err := c.FormFile("document"); err == nil {
			f, err := fh.Open()
			if err != nil {
				utils.Error(c, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "读取附件失败", err))
				return
			}
			defer f.Close()
			doc = &service.DocumentUpload{Filename: fh.Filename, Reader: f}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	allocation, err := h.allocationService.Create(c.Request.Context(), user, id, &req, doc)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, allocation)
}
