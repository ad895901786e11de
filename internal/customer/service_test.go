package customer

import (
	"context"
	"errors"
	"testing"

	"backend/internal/common"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCustomerTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Customer{}))
	return db
}

func requireCustomerCode(t *testing.T, err error, code int) {
	t.Helper()
	var bizErr *common.BusinessError
	require.True(t, errors.As(err, &bizErr), "期望业务错误, 实际: %v", err)
	require.Equal(t, code, bizErr.Code)
}

func TestCustomerCreateDefaults(t *testing.T) {
	db := setupCustomerTestDB(t, "customer_create")
	svc := NewService(db)
	ctx := context.Background()

	c, err := svc.Create(ctx, &CreateCustomerRequest{
		Name:        "东方机械",
		ContactName: "王经理",
		CreditLimit: 500000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.Equal(t, "standard", c.Segment, "未指定时应使用默认客户分层")
	require.True(t, c.IsActive)

	_, err = svc.Create(ctx, &CreateCustomerRequest{})
	requireCustomerCode(t, err, common.CodeInvalidRequest)
}

func TestCustomerGetNotFound(t *testing.T) {
	db := setupCustomerTestDB(t, "customer_get")
	svc := NewService(db)

	_, err := svc.Get(context.Background(), "no-such-id")
	requireCustomerCode(t, err, common.CodeCustomerNotFound)
}

func TestCustomerListFilters(t *testing.T) {
	db := setupCustomerTestDB(t, "customer_list")
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateCustomerRequest{Name: "华东重工", Segment: "key_account", Region: "east"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateCustomerRequest{Name: "华南精密", Segment: "strategic", Region: "south"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateCustomerRequest{Name: "北方矿业", Region: "north"})
	require.NoError(t, err)

	all, total, err := svc.List(ctx, &ListCustomersRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, all, 3)

	keyAccounts, total, err := svc.List(ctx, &ListCustomersRequest{Segment: "key_account", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "华东重工", keyAccounts[0].Name)

	south, _, err := svc.List(ctx, &ListCustomersRequest{Region: "south", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, south, 1)
	require.Equal(t, "华南精密", south[0].Name)

	byKeyword, _, err := svc.List(ctx, &ListCustomersRequest{Keyword: "华", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, byKeyword, 2)
}

func TestCustomerUpdateOptionalFields(t *testing.T) {
	db := setupCustomerTestDB(t, "customer_update")
	svc := NewService(db)
	ctx := context.Background()

	c, err := svc.Create(ctx, &CreateCustomerRequest{Name: "东方机械", CreditLimit: 100000})
	require.NoError(t, err)

	segment := "strategic"
	limit := float64(800000)
	updated, err := svc.Update(ctx, c.ID, &UpdateCustomerRequest{
		Segment:     &segment,
		CreditLimit: &limit,
	})
	require.NoError(t, err)
	require.Equal(t, "strategic", updated.Segment)
	require.Equal(t, float64(800000), updated.CreditLimit)
	require.Equal(t, "东方机械", updated.Name, "未提供的字段不应被修改")
}

func TestCustomerSoftDelete(t *testing.T) {
	db := setupCustomerTestDB(t, "customer_delete")
	svc := NewService(db)
	ctx := context.Background()

	c, err := svc.Create(ctx, &CreateCustomerRequest{Name: "东方机械"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID, "operator-1"))

	_, err = svc.Get(ctx, c.ID)
	requireCustomerCode(t, err, common.CodeCustomerNotFound)

	_, total, err := svc.List(ctx, &ListCustomersRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
}
