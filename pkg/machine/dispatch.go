// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

// ActionContext is everything an instruction may read or mutate. PC in
// Registers has already been advanced past the instruction being executed.
type ActionContext struct {
	Display   Display
	Controls  Controls
	Random    func() byte
	Stack     *Stack
	Registers *Registers
	Memory    *Memory
}

func (ctx *ActionContext) keyPressed(key byte) bool {
	if ctx.Controls == nil {
		return false
	}

	return ctx.Controls.IsKeyPressed(key)
}

func (ctx *ActionContext) keyNotPressed(key byte) bool {
	if ctx.Controls == nil {
		return true
	}

	return ctx.Controls.IsKeyNotPressed(key)
}

func (ctx *ActionContext) pollKey() (byte, bool) {
	if ctx.Controls == nil {
		return 0, false
	}

	return ctx.Controls.PollKey()
}

func (ctx *ActionContext) skip() {
	ctx.Registers.PC += 2
}

// Dispatch applies the semantics of a single decoded instruction.
func Dispatch(instruction Instruction, opcode uint16, ctx *ActionContext) error {
	reg := ctx.Registers
	v := &reg.V

	x := RegisterX(opcode)
	y := RegisterY(opcode)

	switch instruction {
	// CLS  |0000   |0000   |1110   |0000   | Clear display
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_CLS:
		ctx.Display.Clear()

	// RET  |0000   |0000   |1110   |1110   | Return from subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_RET:
		addr, ok := ctx.Stack.Pop()

		if !ok {
			return &StackError{"pop", reg.PC - 2, 0}
		}

		reg.PC = addr

	// JMP  |0001   |addr12                 | Jump
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_JMP:
		reg.PC = Address(opcode)

	// CALL |0010   |addr12                 | Call subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_CALL:
		if !ctx.Stack.Push(reg.PC) {
			return &StackError{"push", reg.PC - 2, ctx.Stack.Len()}
		}

		reg.PC = Address(opcode)

	// SE   |0011   |X      |imm8           | Skip if Vx == imm
	// SNE  |0100   |X      |imm8           | Skip if Vx != imm
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SE:
		if v[x] == Value(opcode) {
			ctx.skip()
		}

	case INSTRUCTION_SNE:
		if v[x] != Value(opcode) {
			ctx.skip()
		}

	// SER  |0101   |X      |Y      |0000   | Skip if Vx == Vy
	// SNER |1001   |X      |Y      |0000   | Skip if Vx != Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SER:
		if v[x] == v[y] {
			ctx.skip()
		}

	case INSTRUCTION_SNER:
		if v[x] != v[y] {
			ctx.skip()
		}

	// SET  |0110   |X      |imm8           | Vx = imm
	// ADD  |0111   |X      |imm8           | Vx += imm (no carry)
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SET:
		v[x] = Value(opcode)

	case INSTRUCTION_ADD:
		v[x] += Value(opcode)

	// SETR |1000   |X      |Y      |0000   | Vx = Vy
	// OR   |1000   |X      |Y      |0001   | Vx |= Vy
	// AND  |1000   |X      |Y      |0010   | Vx &= Vy
	// XOR  |1000   |X      |Y      |0011   | Vx ^= Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SETR:
		v[x] = v[y]

	case INSTRUCTION_OR:
		v[x] |= v[y]

	case INSTRUCTION_AND:
		v[x] &= v[y]

	case INSTRUCTION_XOR:
		v[x] ^= v[y]

	// ADDR |1000   |X      |Y      |0100   | Vx += Vy, VF = carry
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_ADDR:
		sum := uint16(v[x]) + uint16(v[y])

		v[x] = byte(sum)
		v[REGISTER_FLAG] = flag(sum > 0xFF)

	// SUB  |1000   |X      |Y      |0101   | Vx -= Vy, VF = !borrow
	// SUBR |1000   |X      |Y      |0111   | Vx = Vy - Vx, VF = !borrow
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SUB:
		vx, vy := v[x], v[y]

		v[x] = vx - vy
		v[REGISTER_FLAG] = flag(vx >= vy)

	case INSTRUCTION_SUBR:
		vx, vy := v[x], v[y]

		v[x] = vy - vx
		v[REGISTER_FLAG] = flag(vy >= vx)

	// SHR  |1000   |X      |Y      |0110   | VF = Vx & 1, Vx >>= 1
	// SHL  |1000   |X      |Y      |1110   | VF = Vx >> 7, Vx <<= 1
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SHR:
		vx := v[x]

		v[x] = vx >> 1
		v[REGISTER_FLAG] = vx & 0x1

	case INSTRUCTION_SHL:
		vx := v[x]

		v[x] = vx << 1
		v[REGISTER_FLAG] = flag(vx&0x80 != 0)

	// LDA  |1010   |addr12                 | I = addr
	// JMPO |1011   |addr12                 | PC = V0 + addr
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_LDA:
		reg.I = Address(opcode)

	case INSTRUCTION_JMPO:
		reg.PC = uint16(v[0]) + Address(opcode)

	// RAND |1100   |X      |imm8           | Vx = random & imm
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_RAND:
		v[x] = ctx.Random() & Value(opcode)

	// DRAW |1101   |X      |Y      |N      | XOR sprite at (Vx, Vy)
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_DRAW:
		return draw(ctx, int(v[x]), int(v[y]), int(Nibble(opcode)))

	// SKP  |1110   |X      |1001   |1110   | Skip if key Vx pressed
	// SKNP |1110   |X      |1010   |0001   | Skip if key Vx not pressed
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SKP:
		if ctx.keyPressed(v[x]) {
			ctx.skip()
		}

	case INSTRUCTION_SKNP:
		if ctx.keyNotPressed(v[x]) {
			ctx.skip()
		}

	// LDDT |1111   |X      |0000   |0111   | Vx = delay timer
	// STDT |1111   |X      |0001   |0101   | delay timer = Vx
	// STST |1111   |X      |0001   |1000   | sound timer = Vx
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_LDDT:
		v[x] = reg.DelayTimer

	case INSTRUCTION_STDT:
		reg.DelayTimer = v[x]

	case INSTRUCTION_STST:
		reg.SoundTimer = v[x]

	// LDKP |1111   |X      |0000   |1010   | Vx = next key press
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_LDKP:
		key, ok := ctx.pollKey()

		if !ok {
			// Execute this instruction again on the next cycle
			reg.PC -= 2
			break
		}

		v[x] = key

	// ADDA |1111   |X      |0001   |1110   | I += Vx
	// LDSA |1111   |X      |0010   |1001   | I = glyph address of Vx
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_ADDA:
		reg.I += uint16(v[x])

	case INSTRUCTION_LDSA:
		reg.I = MEMSPACE_FONT + uint16(v[x])*GLYPH_SIZE

	// STDR |1111   |X      |0011   |0011   | BCD of Vx at I, I+1, I+2
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_STDR:
		digits := [3]byte{v[x] / 100, v[x] / 10 % 10, v[x] % 10}

		for i, digit := range digits {
			if err := ctx.Memory.Write(int(reg.I)+i, digit); err != nil {
				return err
			}
		}

	// STRD |1111   |X      |0101   |0101   | memory[I..I+x] = V0..Vx
	// LDRD |1111   |X      |0110   |0101   | V0..Vx = memory[I..I+x]
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_STRD:
		for i := 0; i <= int(x); i++ {
			if err := ctx.Memory.Write(int(reg.I)+i, v[i]); err != nil {
				return err
			}
		}

	case INSTRUCTION_LDRD:
		for i := 0; i <= int(x); i++ {
			value, err := ctx.Memory.Read(int(reg.I) + i)

			if err != nil {
				return err
			}

			v[i] = value
		}

	default:
		return &UnsupportedError{opcode, reg.PC - 2}
	}

	return nil
}

// XOR-blits an 8 pixel wide sprite of the given height from memory at I.
// The start position wraps around the display, the sprite itself is clipped
// at the edges. VF is set if any lit pixel is switched off.
func draw(ctx *ActionContext, x, y, rows int) error {
	reg := ctx.Registers

	x %= DISPLAY_WIDTH
	y %= DISPLAY_HEIGHT

	reg.V[REGISTER_FLAG] = 0

	for row := 0; row < rows; row++ {
		if y+row >= DISPLAY_HEIGHT {
			break
		}

		sprite, err := ctx.Memory.Read(int(reg.I) + row)

		if err != nil {
			return err
		}

		for col := 0; col < 8; col++ {
			if x+col >= DISPLAY_WIDTH {
				break
			}

			bit := (sprite >> (7 - col)) & 0x1
			old := ctx.Display.GetPixel(x+col, y+row)
			pixel := old ^ bit

			ctx.Display.SetPixel(x+col, y+row, pixel)

			if old == 1 && pixel == 0 {
				reg.V[REGISTER_FLAG] = 1
			}
		}
	}

	return nil
}

func flag(set bool) byte {
	if set {
		return 1
	}

	return 0
}
