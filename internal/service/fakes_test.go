package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"save-vault-go/internal/model"
	"save-vault-go/pkg/tasks"

	"gorm.io/gorm"
)

// 本文件提供各 service 测试共用的内存版 repository 假实现。

var errObjectNotFound = errors.New("object not found")

func objectKey(userID uint, fileName string) string {
	return fmt.Sprintf("%d/%s", userID, fileName)
}

// fakeVaultRepo 是 VaultRepository 的内存实现。
type fakeVaultRepo struct {
	objects map[string]model.SaveObjectInfo
	// putErrs 指定特定文件名的上传失败
	putErrs map[string]error
	// removeErrs 指定特定文件名的删除失败
	removeErrs map[string]error

	progressWrites  int
	progressCleared bool
	avatarRemoved   bool
	allRemoved      []uint
}

func newFakeVaultRepo() *fakeVaultRepo {
	return &fakeVaultRepo{
		objects:    make(map[string]model.SaveObjectInfo),
		putErrs:    make(map[string]error),
		removeErrs: make(map[string]error),
	}
}

func (f *fakeVaultRepo) seed(userID uint, fileName, label string, size int64) {
	f.objects[objectKey(userID, fileName)] = model.SaveObjectInfo{
		Name:       fileName,
		Size:       size,
		UploadedAt: time.Now(),
		Label:      label,
	}
}

func (f *fakeVaultRepo) ListSaveObjects(ctx context.Context, userID uint) ([]model.SaveObjectInfo, error) {
	prefix := fmt.Sprintf("%d/", userID)
	infos := make([]model.SaveObjectInfo, 0)
	for key, info := range f.objects {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (f *fakeVaultRepo) StatSaveObject(ctx context.Context, userID uint, fileName string) (*model.SaveObjectInfo, error) {
	info, ok := f.objects[objectKey(userID, fileName)]
	if !ok {
		return nil, errObjectNotFound
	}
	return &info, nil
}

func (f *fakeVaultRepo) PutSaveObject(ctx context.Context, userID uint, fileName string, reader io.Reader, size int64, label string) error {
	if err := f.putErrs[fileName]; err != nil {
		return err
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return err
	}
	f.objects[objectKey(userID, fileName)] = model.SaveObjectInfo{
		Name:       fileName,
		Size:       size,
		UploadedAt: time.Now(),
		Label:      label,
	}
	return nil
}

func (f *fakeVaultRepo) CopySaveObject(ctx context.Context, userID uint, srcName, dstName string) error {
	src, ok := f.objects[objectKey(userID, srcName)]
	if !ok {
		return errObjectNotFound
	}
	dst := src
	dst.Name = dstName
	f.objects[objectKey(userID, dstName)] = dst
	return nil
}

func (f *fakeVaultRepo) RemoveSaveObject(ctx context.Context, userID uint, fileName string) error {
	if err := f.removeErrs[fileName]; err != nil {
		return err
	}
	delete(f.objects, objectKey(userID, fileName))
	return nil
}

func (f *fakeVaultRepo) RemoveAllSaveObjects(ctx context.Context, userID uint) error {
	prefix := fmt.Sprintf("%d/", userID)
	for key := range f.objects {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(f.objects, key)
		}
	}
	f.allRemoved = append(f.allRemoved, userID)
	return nil
}

func (f *fakeVaultRepo) PresignedDownloadURL(ctx context.Context, userID uint, fileName, downloadAs string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://example.test/%d/%s?as=%s", userID, fileName, downloadAs), nil
}

func (f *fakeVaultRepo) PutAvatar(ctx context.Context, userID uint, reader io.Reader, size int64) error {
	_, err := io.Copy(io.Discard, reader)
	return err
}

func (f *fakeVaultRepo) RemoveAvatar(ctx context.Context, userID uint) error {
	f.avatarRemoved = true
	return nil
}

func (f *fakeVaultRepo) PresignedAvatarURL(ctx context.Context, userID uint, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://example.test/avatars/%d/avatar.jpg", userID), nil
}

func (f *fakeVaultRepo) SetUploadProgress(ctx context.Context, userID uint, fileName string, transferred, total int64) error {
	f.progressWrites++
	return nil
}

func (f *fakeVaultRepo) GetUploadProgress(ctx context.Context, userID uint) (*model.UploadProgress, error) {
	return nil, nil
}

func (f *fakeVaultRepo) ClearUploadProgress(ctx context.Context, userID uint) error {
	f.progressCleared = true
	return nil
}

// fakeRenameRepo 是 RenameIntentRepository 的内存实现。
type fakeRenameRepo struct {
	intents map[uint]model.RenameIntent
	nextID  uint
}

func newFakeRenameRepo() *fakeRenameRepo {
	return &fakeRenameRepo{intents: make(map[uint]model.RenameIntent)}
}

func (f *fakeRenameRepo) Create(intent *model.RenameIntent) error {
	f.nextID++
	intent.ID = f.nextID
	f.intents[intent.ID] = *intent
	return nil
}

func (f *fakeRenameRepo) Delete(intentID uint) error {
	delete(f.intents, intentID)
	return nil
}

func (f *fakeRenameRepo) ListAll() ([]model.RenameIntent, error) {
	intents := make([]model.RenameIntent, 0, len(f.intents))
	for _, intent := range f.intents {
		intents = append(intents, intent)
	}
	return intents, nil
}

// fakeLocationRepo 是 LocationRepository 的内存实现。
type fakeLocationRepo struct {
	records map[string][]string
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{records: make(map[string][]string)}
}

func (f *fakeLocationRepo) GetLocations(userID uint, fileName string) ([]string, error) {
	locations, ok := f.records[objectKey(userID, fileName)]
	if !ok {
		return nil, nil
	}
	return locations, nil
}

func (f *fakeLocationRepo) SaveLocations(userID uint, fileName string, locations []string) error {
	stored := make([]string, len(locations))
	copy(stored, locations)
	f.records[objectKey(userID, fileName)] = stored
	return nil
}

func (f *fakeLocationRepo) DeleteLocations(userID uint, fileName string) error {
	delete(f.records, objectKey(userID, fileName))
	return nil
}

func (f *fakeLocationRepo) DeleteAllForUser(userID uint) error {
	prefix := fmt.Sprintf("%d/", userID)
	for key := range f.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(f.records, key)
		}
	}
	return nil
}

// fakeUserRepo 是 UserRepository 的内存实现。
type fakeUserRepo struct {
	users   map[uint]model.User
	nextID  uint
	deleted []uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]model.User)}
}

func (f *fakeUserRepo) Create(user *model.User) error {
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(userID uint) (*model.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u := user
	return &u, nil
}

func (f *fakeUserRepo) Update(user *model.User) error {
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Delete(userID uint) error {
	delete(f.users, userID)
	f.deleted = append(f.deleted, userID)
	return nil
}

// eventRecorder 记录发出的存档事件，代替真实的 Kafka 生产者。
type eventRecorder struct {
	events []tasks.SaveEventTask
}

func (r *eventRecorder) produce(task tasks.SaveEventTask) error {
	r.events = append(r.events, task)
	return nil
}
