package crm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// InMemory is a fixture-backed CRM for development and tests. Seeded data
// mirrors the demo dataset of the hosted CRM stub.
type InMemory struct {
	mu        sync.RWMutex
	customers map[string]contractx.CustomerRecord
	purchases map[string][]contractx.Purchase     // by customer id
	bySerial  map[string]contractx.Purchase        // by serial number
	services  map[string][]contractx.ServiceRecord // by customer id

	now func() time.Time
}

var _ contractx.CRM = (*InMemory)(nil)

type InMemoryOption func(*InMemory)

func WithInMemoryNow(now func() time.Time) InMemoryOption {
	return func(m *InMemory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	m := &InMemory{
		customers: map[string]contractx.CustomerRecord{},
		purchases: map[string][]contractx.Purchase{},
		bySerial:  map[string]contractx.Purchase{},
		services:  map[string][]contractx.ServiceRecord{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.seed()
	return m
}

func (m *InMemory) QueryCustomer(_ context.Context, customerID string) (contractx.CustomerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.customers[customerID]
	if !ok {
		return contractx.CustomerRecord{}, fmt.Errorf("%w: customer %s", contractx.ErrCustomerNotFound, customerID)
	}
	record.Purchases = append([]contractx.Purchase(nil), m.purchases[customerID]...)
	return record, nil
}

func (m *InMemory) QueryPurchases(ctx context.Context, customerID string) ([]contractx.Purchase, error) {
	if _, err := m.QueryCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]contractx.Purchase(nil), m.purchases[customerID]...), nil
}

func (m *InMemory) QueryWarranty(_ context.Context, ref string) (contractx.WarrantyStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.bySerial[ref]; ok {
		return warrantyFromPurchase(m.now(), p), nil
	}

	purchases := m.purchases[ref]
	if len(purchases) == 0 {
		return contractx.WarrantyStatus{}, fmt.Errorf("%w: no purchase for %s", contractx.ErrProductNotFound, ref)
	}
	return warrantyFromPurchase(m.now(), purchases[0]), nil
}

func (m *InMemory) QueryServiceRecords(ctx context.Context, customerID string) ([]contractx.ServiceRecord, error) {
	if _, err := m.QueryCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]contractx.ServiceRecord(nil), m.services[customerID]...), nil
}

func (m *InMemory) seed() {
	day := func(y int, mo time.Month, d int) time.Time {
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	}

	customers := []contractx.CustomerRecord{
		{CustomerID: "CUST001", Name: "张明", Email: "zhang.ming@example.com", Phone: "+86-138-0011-2233", Address: "北京市朝阳区建国门外大街1号"},
		{CustomerID: "CUST002", Name: "李华", Email: "li.hua@example.com", Phone: "+86-139-0022-3344", Address: "上海市浦东新区陆家嘴金融中心"},
		{CustomerID: "CUST003", Name: "王芳", Email: "wang.fang@example.com", Phone: "+86-137-0033-4455", Address: "广州市天河区珠江新城"},
		{CustomerID: "CUST004", Name: "陈强", Email: "chen.qiang@example.com", Phone: "+86-136-0044-5566", Address: "深圳市南山区科技园"},
		{CustomerID: "CUST005", Name: "刘婷", Email: "liu.ting@example.com", Phone: "+86-135-0055-6677", Address: "杭州市西湖区文三路"},
	}
	for _, c := range customers {
		m.customers[c.CustomerID] = c
	}

	purchases := []contractx.Purchase{
		{ProductID: "PROD001", SerialNumber: "SN20240001", ProductName: "智能电视 65寸", CustomerID: "CUST001", PurchaseDate: day(2023, 12, 10), WarrantyEndDate: day(2025, 12, 10), WarrantyType: contractx.WarrantyStandard, Status: "active"},
		{ProductID: "PROD002", SerialNumber: "SN20240002", ProductName: "智能音箱 Pro", CustomerID: "CUST001", PurchaseDate: day(2023, 8, 15), WarrantyEndDate: day(2024, 8, 15), WarrantyType: contractx.WarrantyExtended, Status: "active"},
		{ProductID: "PROD003", SerialNumber: "SN20240003", ProductName: "笔记本电脑 X1", CustomerID: "CUST002", PurchaseDate: day(2024, 1, 20), WarrantyEndDate: day(2025, 1, 20), WarrantyType: contractx.WarrantyPremium, Status: "active"},
		{ProductID: "PROD004", SerialNumber: "SN20240004", ProductName: "平板电脑 T8", CustomerID: "CUST002", PurchaseDate: day(2023, 11, 5), WarrantyEndDate: day(2024, 11, 5), WarrantyType: contractx.WarrantyStandard, Status: "active"},
		{ProductID: "PROD005", SerialNumber: "SN20240005", ProductName: "智能手表 S3", CustomerID: "CUST003", PurchaseDate: day(2023, 9, 18), WarrantyEndDate: day(2024, 9, 18), WarrantyType: contractx.WarrantyStandard, Status: "active"},
		{ProductID: "PROD006", SerialNumber: "SN20240006", ProductName: "无线耳机 E2", CustomerID: "CUST003", PurchaseDate: day(2023, 6, 22), WarrantyEndDate: day(2024, 6, 22), WarrantyType: contractx.WarrantyStandard, Status: "expired"},
		{ProductID: "PROD007", SerialNumber: "SN20240007", ProductName: "游戏主机 G5", CustomerID: "CUST004", PurchaseDate: day(2024, 2, 14), WarrantyEndDate: day(2025, 2, 14), WarrantyType: contractx.WarrantyExtended, Status: "active"},
		{ProductID: "PROD008", SerialNumber: "SN20240008", ProductName: "VR头盔 V2", CustomerID: "CUST004", PurchaseDate: day(2023, 10, 30), WarrantyEndDate: day(2024, 10, 30), WarrantyType: contractx.WarrantyStandard, Status: "active"},
		{ProductID: "PROD009", SerialNumber: "SN20240009", ProductName: "数码相机 C9", CustomerID: "CUST005", PurchaseDate: day(2023, 7, 8), WarrantyEndDate: day(2024, 7, 8), WarrantyType: contractx.WarrantyStandard, Status: "active"},
		{ProductID: "PROD010", SerialNumber: "SN20240010", ProductName: "打印机 P3", CustomerID: "CUST005", PurchaseDate: day(2023, 4, 12), WarrantyEndDate: day(2024, 4, 12), WarrantyType: contractx.WarrantyExtended, Status: "active"},
	}
	for _, p := range purchases {
		m.purchases[p.CustomerID] = append(m.purchases[p.CustomerID], p)
		m.bySerial[p.SerialNumber] = p
	}
	// Most recent purchase first, matching the warranty fallback lookup.
	for id := range m.purchases {
		list := m.purchases[id]
		sort.Slice(list, func(i, j int) bool { return list[i].PurchaseDate.After(list[j].PurchaseDate) })
		m.purchases[id] = list
	}

	services := []contractx.ServiceRecord{
		{RecordID: "SRV001", SerialNumber: "SN20240001", CustomerID: "CUST001", ServiceDate: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), ServiceType: "屏幕维修", Description: "屏幕出现竖线", Technician: "王师傅", Status: "completed"},
		{RecordID: "SRV002", SerialNumber: "SN20240003", CustomerID: "CUST002", ServiceDate: time.Date(2024, 3, 20, 14, 30, 0, 0, time.UTC), ServiceType: "系统升级", Description: "操作系统升级服务", Technician: "李工程师", Status: "scheduled"},
	}
	for _, s := range services {
		m.services[s.CustomerID] = append(m.services[s.CustomerID], s)
	}
}
