package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Device — описание устройства из реестра.
//
// Реестр для ядра read-only: определения устройств принадлежат
// внешней системе и здесь не изменяются. Меняется только кэш
// состояний capability, который наполняется сообщениями с шины.
type Device struct {
	// ID — идентификатор устройства.
	ID string `yaml:"id" json:"id"`

	// Name — человекочитаемое имя.
	Name string `yaml:"name" json:"name"`

	// Zone — зона (комната), к которой привязано устройство.
	Zone string `yaml:"zone" json:"zone"`

	// Type — тип устройства: light, thermostat, sensor.
	Type string `yaml:"type" json:"type"`

	// Capabilities — поддерживаемые capabilities
	// (onoff, dim, target_temperature, measure_temperature, ...).
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
}

// HasCapability проверяет наличие capability у устройства.
func (d Device) HasCapability(capability string) bool {
	for _, c := range d.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Registry — реестр устройств и зон с кэшем состояний.
//
// Лукапы по определениям потокобезопасны без блокировки (карта
// неизменяема после создания); кэш состояний защищён мьютексом,
// т.к. его пишет горутина подписки на шину, а читают pipeline-задачи.
type Registry struct {
	devices map[string]Device
	zones   map[string][]string // zone → device IDs

	stateMu sync.RWMutex
	state   map[string]map[string]any // deviceID → capability → value
}

// devicesFile — формат YAML файла реестра.
type devicesFile struct {
	Devices []Device `yaml:"devices"`
}

// New создаёт Registry из списка устройств.
func New(devices []Device) *Registry {
	r := &Registry{
		devices: make(map[string]Device, len(devices)),
		zones:   make(map[string][]string),
		state:   make(map[string]map[string]any),
	}

	for _, d := range devices {
		r.devices[d.ID] = d
		zone := strings.ToLower(d.Zone)
		r.zones[zone] = append(r.zones[zone], d.ID)
	}

	return r
}

// LoadFile загружает реестр из YAML файла.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file %s: %w", path, err)
	}

	var f devicesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse devices file %s: %w", path, err)
	}

	for _, d := range f.Devices {
		if d.ID == "" {
			return nil, fmt.Errorf("devices file %s: device without id", path)
		}
	}

	return New(f.Devices), nil
}

// ByID возвращает устройство по идентификатору.
func (r *Registry) ByID(id string) (Device, bool) {
	d, ok := r.devices[id]
	return d, ok
}

// HasZone проверяет, известна ли зона.
func (r *Registry) HasZone(zone string) bool {
	_, ok := r.zones[strings.ToLower(zone)]
	return ok
}

// InZone возвращает устройства зоны, отфильтрованные по типу.
// Пустой deviceType означает «любой тип».
func (r *Registry) InZone(zone, deviceType string) []Device {
	ids := r.zones[strings.ToLower(zone)]

	var result []Device
	for _, id := range ids {
		d := r.devices[id]
		if deviceType == "" || d.Type == deviceType {
			result = append(result, d)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Zones возвращает отсортированный список известных зон.
func (r *Registry) Zones() []string {
	zones := make([]string, 0, len(r.zones))
	for z := range r.zones {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	return zones
}

// All возвращает все устройства, отсортированные по ID.
func (r *Registry) All() []Device {
	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// Count возвращает количество устройств.
func (r *Registry) Count() int {
	return len(r.devices)
}

// ApplyState обновляет кэшированное состояние capability устройства.
// Вызывается обработчиком подписки на топики состояний.
func (r *Registry) ApplyState(deviceID, capability string, value any) {
	if _, ok := r.devices[deviceID]; !ok {
		return
	}

	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if r.state[deviceID] == nil {
		r.state[deviceID] = make(map[string]any)
	}
	r.state[deviceID][capability] = value
}

// StateOf возвращает снимок известных состояний устройства.
func (r *Registry) StateOf(deviceID string) map[string]any {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()

	state, ok := r.state[deviceID]
	if !ok {
		return nil
	}

	snapshot := make(map[string]any, len(state))
	for k, v := range state {
		snapshot[k] = v
	}
	return snapshot
}
