// Package seed loads the canonical directory fixture: five Moscow
// buildings, a three-root activity forest, and eight organizations.
package seed

import (
	"context"
	"fmt"

	"example.com/directory/internal/domain"
)

// Fixture identifiers are fixed so that tests and local tooling can refer to
// entities directly.
const (
	BuildingLenina     = "1d0fb3c2-54a1-4c7e-8a75-23e6a3c4f1a0"
	BuildingTverskaya  = "2a9e4b17-6c3d-4f2a-b8e1-74d5c2a9b3e1"
	BuildingArbat      = "3c7d5e28-1b4f-4a9c-9d32-85e6f3b0c4d2"
	BuildingBlyukhera  = "4e5f6a39-2c5d-4b0e-a143-96f7a4c1d5e3"
	BuildingNovyiArbat = "5f6a7b4a-3d6e-4c1f-b254-a7f8b5d2e6f4"

	ActivityFood        = "a1b2c3d4-0001-4a0a-8001-000000000001"
	ActivityCars        = "a1b2c3d4-0002-4a0a-8001-000000000002"
	ActivityServices    = "a1b2c3d4-0003-4a0a-8001-000000000003"
	ActivityMeat        = "a1b2c3d4-0004-4a0a-8001-000000000004"
	ActivityDairy       = "a1b2c3d4-0005-4a0a-8001-000000000005"
	ActivityBread       = "a1b2c3d4-0006-4a0a-8001-000000000006"
	ActivityCargo       = "a1b2c3d4-0007-4a0a-8001-000000000007"
	ActivityPassenger   = "a1b2c3d4-0008-4a0a-8001-000000000008"
	ActivityRepair      = "a1b2c3d4-0009-4a0a-8001-000000000009"
	ActivityParts       = "a1b2c3d4-000a-4a0a-8001-00000000000a"
	ActivityAccessories = "a1b2c3d4-000b-4a0a-8001-00000000000b"

	OrgRogaIKopyta     = "0b1c2d3e-0001-4b0b-9001-000000000001"
	OrgDairyFarm       = "0b1c2d3e-0002-4b0b-9001-000000000002"
	OrgMeatYard        = "0b1c2d3e-0003-4b0b-9001-000000000003"
	OrgAutoService     = "0b1c2d3e-0004-4b0b-9001-000000000004"
	OrgBakery          = "0b1c2d3e-0005-4b0b-9001-000000000005"
	OrgAutoParts       = "0b1c2d3e-0006-4b0b-9001-000000000006"
	OrgAutoAccessories = "0b1c2d3e-0007-4b0b-9001-000000000007"
	OrgCargo           = "0b1c2d3e-0008-4b0b-9001-000000000008"
)

// Buildings returns the fixture buildings.
func Buildings() []domain.Building {
	return []domain.Building{
		{ID: BuildingLenina, Address: "г. Москва, ул. Ленина 1, офис 3", Latitude: "55.7558", Longitude: "37.6176"},
		{ID: BuildingTverskaya, Address: "г. Москва, ул. Тверская 10, офис 5", Latitude: "55.7576", Longitude: "37.6136"},
		{ID: BuildingArbat, Address: "г. Москва, ул. Арбат 20", Latitude: "55.7494", Longitude: "37.5916"},
		{ID: BuildingBlyukhera, Address: "г. Москва, ул. Блюхера 32/1", Latitude: "55.7600", Longitude: "37.6400"},
		{ID: BuildingNovyiArbat, Address: "г. Москва, ул. Новый Арбат 15", Latitude: "55.7500", Longitude: "37.5800"},
	}
}

// Activities returns the fixture activity forest in parent-before-child
// order.
func Activities() []domain.Activity {
	return []domain.Activity{
		{ID: ActivityFood, Name: "Еда"},
		{ID: ActivityCars, Name: "Автомобили"},
		{ID: ActivityServices, Name: "Услуги"},
		{ID: ActivityMeat, Name: "Мясная продукция", ParentID: ptr(ActivityFood)},
		{ID: ActivityDairy, Name: "Молочная продукция", ParentID: ptr(ActivityFood)},
		{ID: ActivityBread, Name: "Хлебобулочные изделия", ParentID: ptr(ActivityFood)},
		{ID: ActivityCargo, Name: "Грузовые", ParentID: ptr(ActivityCars)},
		{ID: ActivityPassenger, Name: "Легковые", ParentID: ptr(ActivityCars)},
		{ID: ActivityRepair, Name: "Ремонт", ParentID: ptr(ActivityServices)},
		{ID: ActivityParts, Name: "Запчасти", ParentID: ptr(ActivityPassenger)},
		{ID: ActivityAccessories, Name: "Аксессуары", ParentID: ptr(ActivityPassenger)},
	}
}

// Organizations returns the fixture organizations with phone numbers and
// activity links.
func Organizations() []domain.Organization {
	return []domain.Organization{
		{ID: OrgRogaIKopyta, Name: `ООО "Рога и Копыта"`, BuildingID: BuildingLenina,
			Phones:     []string{"2-222-222", "3-333-333", "8-923-666-13-13"},
			Activities: refs(ActivityMeat, ActivityDairy)},
		{ID: OrgDairyFarm, Name: `ИП "Молочная ферма"`, BuildingID: BuildingTverskaya,
			Phones:     []string{"4-444-444", "5-555-555"},
			Activities: refs(ActivityDairy)},
		{ID: OrgMeatYard, Name: `ООО "Мясной двор"`, BuildingID: BuildingArbat,
			Phones:     []string{"6-666-666"},
			Activities: refs(ActivityMeat)},
		{ID: OrgAutoService, Name: `ООО "Автосервис"`, BuildingID: BuildingBlyukhera,
			Phones:     []string{"7-777-777", "8-888-888"},
			Activities: refs(ActivityRepair)},
		{ID: OrgBakery, Name: `ИП "Хлеб и калачи"`, BuildingID: BuildingNovyiArbat,
			Phones:     []string{"9-999-999"},
			Activities: refs(ActivityBread)},
		{ID: OrgAutoParts, Name: `ООО "Автозапчасти"`, BuildingID: BuildingLenina,
			Phones:     []string{"1-111-111"},
			Activities: refs(ActivityParts)},
		{ID: OrgAutoAccessories, Name: `ООО "Автоаксессуары"`, BuildingID: BuildingTverskaya,
			Phones:     []string{"2-333-444"},
			Activities: refs(ActivityAccessories)},
		{ID: OrgCargo, Name: `ООО "Грузоперевозки"`, BuildingID: BuildingArbat,
			Phones:     []string{"5-666-777"},
			Activities: refs(ActivityCargo)},
	}
}

// Apply writes the full fixture through w. Parent activities are written
// before their children so the level derivation holds.
func Apply(ctx context.Context, w domain.Writer) error {
	for _, b := range Buildings() {
		if err := w.CreateBuilding(ctx, b); err != nil {
			return fmt.Errorf("seed building %s: %w", b.Address, err)
		}
	}
	for _, a := range Activities() {
		if err := w.CreateActivity(ctx, a); err != nil {
			return fmt.Errorf("seed activity %s: %w", a.Name, err)
		}
	}
	for _, o := range Organizations() {
		if err := w.CreateOrganization(ctx, o); err != nil {
			return fmt.Errorf("seed organization %s: %w", o.Name, err)
		}
	}
	return nil
}

func ptr(s string) *string { return &s }

func refs(ids ...string) []domain.Activity {
	out := make([]domain.Activity, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Activity{ID: id})
	}
	return out
}
