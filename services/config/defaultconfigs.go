package config

// Embedded board profiles keyed by board name. Calibration values are
// placeholders to be replaced per instrument.

const cfgEEMON42 = `
board: eemon42
spi:
  hz: 2500000
  mode: 3
  sck: 6
  sdo: 7
  sdi: 2
# GP10, 9, 8, 3, 5, 4 select the six chips and read the encoder and
# buttons between transactions; GP21 is the shared IRQ line.
dual_role: [10, 9, 8, 3, 5, 4, 21]
out_only: [20]
irq_pin: 21
inputs:
  rotary_a: 10
  rotary_b: 9
  buttons:
    - {name: rotary, pin: 8}
    - {name: enter, pin: 3}
    - {name: back, pin: 5}
    - {name: shift, pin: 4}
  shift: shift
  shift_factor: 10
  debounce: 50ms
channels:
  - {cs: 10, phase: A, cal: {ct_cal: 100, v_gain: 1, vt_cal: 1000, energy_cal: 1}}
  - {cs: 9,  phase: A, cal: {ct_cal: 100, v_gain: 1, vt_cal: 1000, energy_cal: 1}}
  - {cs: 8,  phase: A, cal: {ct_cal: 100, v_gain: 1, vt_cal: 1000, energy_cal: 1}}
  - {cs: 3,  phase: A, cal: {ct_cal: 100, v_gain: 1, vt_cal: 1000, energy_cal: 1}}
  - {cs: 5,  phase: A, cal: {ct_cal: 100, v_gain: 1, vt_cal: 1000, energy_cal: 1}}
  - {cs: 4,  phase: A, cal: {ct_cal: 100, v_gain: 1, vt_cal: 1000, energy_cal: 1}}
energy:
  wthr1: 0x000002
  wthr0: 0x000000
  varthr1: 0x000002
  varthr0: 0x000000
  line_cycles: 100
  phase_coeff: 0x401235
  policy: status
scan:
  irq_timeout: 13s
heartbeat:
  interval: 2s
telemetry:
  interval: 1s
  uart_baud: 115200
  uart_tx: 12
  uart_rx: 13
`

var embeddedConfigs = map[string][]byte{
	"eemon42": []byte(cfgEEMON42),
}
