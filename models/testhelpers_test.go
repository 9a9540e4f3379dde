package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/seadatafocus/memp_backend/config"
	"github.com/seadatafocus/memp_backend/models"
	"github.com/seadatafocus/memp_backend/utils"
)

// Integration environment: throwaway MySQL + Redis containers per test, same
// shape as the production wiring. Gated behind INTEGRATION_TESTS so the
// DB-free tests stay fast.

func setupLedgerTestEnv(t *testing.T) (context.Context, string) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "memp_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	fleetId := fmt.Sprintf("fleet-%d", time.Now().UnixNano())
	ctx := utils.SetFleetIdInContext(context.Background(), fleetId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	return ctx, fleetId
}

type testFixture struct {
	Ship      models.Ship
	Machinery []models.Machinery
	Additive  models.AdditiveType
}

func seedFleetFixture(t *testing.T, fleetId string) *testFixture {
	t.Helper()
	db := config.GetDB()

	itemTypes := []models.ItemType{
		{Key: "HFO", Name: "Heavy Fuel Oil", Category: models.BunkerCategoryFuel},
		{Key: "MGO", Name: "Marine Gas Oil", Category: models.BunkerCategoryFuel},
		{Key: "ME_CYL", Name: "Main Engine Cylinder Oil", Category: models.BunkerCategoryLubeOil},
	}
	for i := range itemTypes {
		if err := db.Where("`key` = ?", itemTypes[i].Key).FirstOrCreate(&itemTypes[i]).Error; err != nil {
			t.Fatalf("seed item type %s: %v", itemTypes[i].Key, err)
		}
	}

	fixture := &testFixture{
		Ship: models.Ship{FleetId: fleetId, Name: "MV Test Vessel", ImoNumber: "9999999", IsActive: utils.NewTrue()},
	}
	if err := db.Create(&fixture.Ship).Error; err != nil {
		t.Fatalf("seed ship: %v", err)
	}

	for _, name := range []string{"Main Engine", "Aux Engine 1"} {
		machineryType := models.MachineryTypeMainEngine
		if strings.HasPrefix(name, "Aux") {
			machineryType = models.MachineryTypeAuxEngine
		}
		m := models.Machinery{FleetId: fleetId, ShipId: fixture.Ship.ID, Name: name, MachineryType: machineryType}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed machinery %s: %v", name, err)
		}
		fixture.Machinery = append(fixture.Machinery, m)
	}

	fixture.Additive = models.AdditiveType{Name: "FuelCare 300", Supplier: "Aderco"}
	if err := db.Create(&fixture.Additive).Error; err != nil {
		t.Fatalf("seed additive type: %v", err)
	}
	return fixture
}

func machineryIds(fixture *testFixture) []int {
	ids := make([]int, 0, len(fixture.Machinery))
	for _, m := range fixture.Machinery {
		ids = append(ids, m.ID)
	}
	return ids
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("memp-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("memp-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=memp_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
