package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocationsDefaultsToSingleEmptyEntry(t *testing.T) {
	locationRepo := newFakeLocationRepo()
	locationRepo.records[objectKey(testUserID, "known.dat")] = []string{"C:/Saves"}
	svc := NewLocationService(locationRepo)

	locations, err := svc.LoadLocations(testUserID, []string{"known.dat", "unknown.dat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C:/Saves"}, locations["known.dat"])
	// 没有记录的文件补默认的单空串列表
	assert.Equal(t, []string{""}, locations["unknown.dat"])
}

func TestSetLocationPersistsNonBlankEntriesOnly(t *testing.T) {
	locationRepo := newFakeLocationRepo()
	locationRepo.records[objectKey(testUserID, "save.dat")] = []string{"C:/A", "C:/B"}
	svc := NewLocationService(locationRepo)

	// 把第二项改成空串：内存列表保留空位，持久化形态滤掉
	locations, err := svc.SetLocation(testUserID, "save.dat", 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"C:/A", ""}, locations)
	assert.Equal(t, []string{"C:/A"}, locationRepo.records[objectKey(testUserID, "save.dat")])
}

func TestSetLocationIndexOutOfRange(t *testing.T) {
	locationRepo := newFakeLocationRepo()
	svc := NewLocationService(locationRepo)

	_, err := svc.SetLocation(testUserID, "save.dat", 5, "C:/X")
	require.ErrorIs(t, err, ErrLocationIndexOutOfRange)
	_, err = svc.SetLocation(testUserID, "save.dat", -1, "C:/X")
	require.ErrorIs(t, err, ErrLocationIndexOutOfRange)
}

func TestAddLocationAppendsEmptyEntry(t *testing.T) {
	locationRepo := newFakeLocationRepo()
	locationRepo.records[objectKey(testUserID, "save.dat")] = []string{"C:/A"}
	svc := NewLocationService(locationRepo)

	locations, err := svc.AddLocation(testUserID, "save.dat")
	require.NoError(t, err)
	assert.Equal(t, []string{"C:/A", ""}, locations)
	// 新增的空条目不进入持久化形态
	assert.Equal(t, []string{"C:/A"}, locationRepo.records[objectKey(testUserID, "save.dat")])
}

func TestRemoveLocationKeepsListNeverEmpty(t *testing.T) {
	locationRepo := newFakeLocationRepo()
	locationRepo.records[objectKey(testUserID, "save.dat")] = []string{"C:/A", "C:/B"}
	svc := NewLocationService(locationRepo)

	locations, err := svc.RemoveLocation(testUserID, "save.dat", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C:/B"}, locations)

	// 删到最后一项，内存列表回到 [""]，持久化记录整体消失
	locations, err = svc.RemoveLocation(testUserID, "save.dat", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, locations)
	_, exists := locationRepo.records[objectKey(testUserID, "save.dat")]
	assert.False(t, exists)

	// 对着空列表继续删，不变式依然成立
	locations, err = svc.RemoveLocation(testUserID, "save.dat", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, locations)
}

func TestReconcileFiltersBlanksAndDeletesWhenAllBlank(t *testing.T) {
	locationRepo := newFakeLocationRepo()
	svc := NewLocationService(locationRepo).(*locationService)

	// ["C:/A", "", "C:/B"] 持久化为 ["C:/A", "C:/B"]
	require.NoError(t, svc.reconcile(testUserID, "save.dat", []string{"C:/A", "", "C:/B"}))
	assert.Equal(t, []string{"C:/A", "C:/B"}, locationRepo.records[objectKey(testUserID, "save.dat")])

	// 全空白列表把持久化记录整体删除
	require.NoError(t, svc.reconcile(testUserID, "save.dat", []string{"", "  "}))
	_, exists := locationRepo.records[objectKey(testUserID, "save.dat")]
	assert.False(t, exists)
}
