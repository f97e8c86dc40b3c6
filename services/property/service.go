// Package property 提供房产列表查询
package property

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/landverify/client-sdk-go/types"
)

// ListPath 房产列表接口路径
const ListPath = "/api/properties"

// Property 房产记录
type Property struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	// Location 可选的位置描述
	Location string `json:"location,omitempty"`
	// Owner 当前登记的所有人地址
	Owner string `json:"owner,omitempty"`
	// TokenID 对应的土地代币
	TokenID uint64 `json:"tokenId,omitempty"`
}

// Link 房产详情页的相对链接
func (p Property) Link() string {
	return "/property/" + strconv.Itoa(p.ID)
}

// Fetcher 读取 JSON 资源
type Fetcher interface {
	GetJSON(ctx context.Context, path string, out interface{}) error
}

// Service 房产服务接口
type Service interface {
	// List 房产列表，按 ID 升序
	List(ctx context.Context) ([]Property, error)

	// Get 单个房产
	Get(ctx context.Context, id int) (*Property, error)
}

// propertyService Service 实现
type propertyService struct {
	fetcher Fetcher
}

// NewService 创建房产服务
func NewService(fetcher Fetcher) Service {
	return &propertyService{fetcher: fetcher}
}

func (s *propertyService) List(ctx context.Context) ([]Property, error) {
	var out []Property
	if err := s.fetcher.GetJSON(ctx, ListPath, &out); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	if out == nil {
		out = []Property{}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *propertyService) Get(ctx context.Context, id int) (*Property, error) {
	if id <= 0 {
		return nil, types.ValidationError("property id must be positive, got %d", id)
	}

	var p Property
	if err := s.fetcher.GetJSON(ctx, ListPath+"/"+strconv.Itoa(id), &p); err != nil {
		return nil, fmt.Errorf("get property %d: %w", id, err)
	}
	return &p, nil
}
