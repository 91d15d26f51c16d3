package service

import (
	"errors"
	"strings"

	"save-vault-go/internal/repository"
)

// ErrLocationIndexOutOfRange 表示路径编辑操作的序号越界。
var ErrLocationIndexOutOfRange = errors.New("存档路径序号越界")

// LocationService 接口定义了存档路径列表的业务操作。
//
// 内存形态与持久化形态刻意不同：内存列表永远至少有一个（可为空串的）
// 条目，方便界面始终渲染一个可编辑的输入框；持久化形态过滤掉空白条目，
// 全部为空白时整条记录删除而不是存一个空列表。每次变更后同步执行一次
// reconcile 写穿（last write wins，不做冲突检测）。
type LocationService interface {
	LoadLocations(userID uint, fileNames []string) (map[string][]string, error)
	SetLocation(userID uint, fileName string, index int, value string) ([]string, error)
	AddLocation(userID uint, fileName string) ([]string, error)
	RemoveLocation(userID uint, fileName string, index int) ([]string, error)
}

// locationService 是 LocationService 接口的实现。
type locationService struct {
	locationRepo repository.LocationRepository
}

// NewLocationService 创建一个新的 LocationService 实例。
func NewLocationService(locationRepo repository.LocationRepository) LocationService {
	return &locationService{locationRepo: locationRepo}
}

// LoadLocations 为一组存档文件加载路径列表。
// 没有持久化记录的文件得到默认的单空串列表 [""]。
func (s *locationService) LoadLocations(userID uint, fileNames []string) (map[string][]string, error) {
	result := make(map[string][]string, len(fileNames))
	for _, fileName := range fileNames {
		locations, err := s.locationRepo.GetLocations(userID, fileName)
		if err != nil {
			return nil, err
		}
		result[fileName] = inMemoryForm(locations)
	}
	return result, nil
}

// SetLocation 替换指定序号的路径条目并写穿，返回变更后的内存列表。
func (s *locationService) SetLocation(userID uint, fileName string, index int, value string) ([]string, error) {
	locations, err := s.loadOne(userID, fileName)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(locations) {
		return nil, ErrLocationIndexOutOfRange
	}
	locations[index] = value
	if err := s.reconcile(userID, fileName, locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// AddLocation 追加一个空路径条目并写穿，返回变更后的内存列表。
func (s *locationService) AddLocation(userID uint, fileName string) ([]string, error) {
	locations, err := s.loadOne(userID, fileName)
	if err != nil {
		return nil, err
	}
	locations = append(locations, "")
	if err := s.reconcile(userID, fileName, locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// RemoveLocation 删除指定序号的路径条目并写穿，返回变更后的内存列表。
// 删空后列表回到默认的 [""]，"内存中永不为空"的不变式始终成立。
func (s *locationService) RemoveLocation(userID uint, fileName string, index int) ([]string, error) {
	locations, err := s.loadOne(userID, fileName)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(locations) {
		return nil, ErrLocationIndexOutOfRange
	}
	locations = append(locations[:index], locations[index+1:]...)
	if len(locations) == 0 {
		locations = []string{""}
	}
	if err := s.reconcile(userID, fileName, locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// loadOne 读取单个文件的路径列表并补默认值。
func (s *locationService) loadOne(userID uint, fileName string) ([]string, error) {
	locations, err := s.locationRepo.GetLocations(userID, fileName)
	if err != nil {
		return nil, err
	}
	return inMemoryForm(locations), nil
}

// reconcile 把内存列表写穿到持久化形态：过滤空白条目后整体覆盖；
// 过滤后为空则删除整条记录。
func (s *locationService) reconcile(userID uint, fileName string, locations []string) error {
	persisted := make([]string, 0, len(locations))
	for _, loc := range locations {
		if strings.TrimSpace(loc) != "" {
			persisted = append(persisted, loc)
		}
	}
	if len(persisted) == 0 {
		return s.locationRepo.DeleteLocations(userID, fileName)
	}
	return s.locationRepo.SaveLocations(userID, fileName, persisted)
}

// inMemoryForm 把持久化列表转成内存形态，空列表补成 [""]。
func inMemoryForm(persisted []string) []string {
	if len(persisted) == 0 {
		return []string{""}
	}
	locations := make([]string, len(persisted))
	copy(locations, persisted)
	return locations
}
