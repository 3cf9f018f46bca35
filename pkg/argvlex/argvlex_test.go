package argvlex

import (
	"testing"

	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type ArgvLexTester struct{}

func init() {
	Suite(&ArgvLexTester{})
}

func (s *ArgvLexTester) TestLexCompile(c *C) {
	toks := Lex([]string{"-c", "-Iinclude", "-DFOO=1", "-o", "a.o", "a.c"})
	c.Assert(toks, HasLen, 5)
	c.Assert(toks[0], Equals, Token{Kind: TokFlag, Flag: "-c"})
	c.Assert(toks[1], Equals, Token{Kind: TokFlag, Flag: "-I", Value: "include"})
	c.Assert(toks[2], Equals, Token{Kind: TokFlag, Flag: "-D", Value: "FOO=1"})
	c.Assert(toks[3], Equals, Token{Kind: TokFlag, Flag: "-o", Value: "a.o"})
	c.Assert(toks[4], Equals, Token{Kind: TokPositional, Value: "a.c"})
}

func (s *ArgvLexTester) TestLexLongFlag(c *C) {
	toks := Lex([]string{"--shared", "--sysroot=/x"})
	c.Assert(toks, HasLen, 2)
	c.Assert(toks[0], Equals, Token{Kind: TokFlag, Flag: "--shared"})
	c.Assert(toks[1], Equals, Token{Kind: TokFlag, Flag: "--sysroot", Value: "/x"})
}

func (s *ArgvLexTester) TestParseGCCCompileInvocation(c *C) {
	inv := ParseGCCInvocation([]string{"-c", "-I", "include", "-DFOO", "-o", "a.o", "a.c"})
	c.Assert(inv.Compile, Equals, true)
	c.Assert(inv.Output, Equals, "a.o")
	c.Assert(inv.Inputs, DeepEquals, []string{"a.c"})
	c.Assert(inv.IncludeDirs, DeepEquals, []string{"include"})
	c.Assert(inv.Defines, DeepEquals, map[string]string{"FOO": ""})
}

func (s *ArgvLexTester) TestParseGCCCompileInvocationFlagsAndUndef(c *C) {
	inv := ParseGCCInvocation([]string{"-c", "-Wall", "-fno-strict-aliasing", "-std=c++11", "-DFOO=1", "-UFOO", "-DBAR=2", "a.c"})
	c.Assert(inv.Flags, DeepEquals, []string{"-Wall", "-fno-strict-aliasing", "-std=c++11"})
	c.Assert(inv.Defines, DeepEquals, map[string]string{"BAR": "2"})
}

func (s *ArgvLexTester) TestParseGCCLinkInvocation(c *C) {
	inv := ParseGCCInvocation([]string{"-shared", "-fPIC", "-o", "libfoo.so", "a.o", "b.o", "-lm", "-lc"})
	c.Assert(inv.Shared, Equals, true)
	c.Assert(inv.PIC, Equals, true)
	c.Assert(inv.Output, Equals, "libfoo.so")
	c.Assert(inv.Inputs, DeepEquals, []string{"a.o", "b.o"})
	c.Assert(inv.Libs, DeepEquals, []string{"m"})
}

func (s *ArgvLexTester) TestParseGCCLinkInvocationPthreadAndStandardDirs(c *C) {
	inv := ParseGCCInvocation([]string{"-pthread", "-L/usr/lib", "-L/opt/libs", "-o", "app", "a.o"})
	c.Assert(inv.Libs, DeepEquals, []string{"pthread"})
	c.Assert(inv.LibDirs, DeepEquals, []string{"/opt/libs"})
}

func (s *ArgvLexTester) TestParseGCCInvocationIgnoresKnownNoiseFlags(c *C) {
	inv := ParseGCCInvocation([]string{"-c", "-g", "-O2", "-Wl,-rpath,/x", "-MF", "a.d", "a.c"})
	c.Assert(inv.Flags, HasLen, 0)
	c.Assert(inv.UnrecognizedFlags, HasLen, 0)
}

func (s *ArgvLexTester) TestParseGCCInvocationWarnsOnUnrecognizedFlag(c *C) {
	inv := ParseGCCInvocation([]string{"-c", "-qweird", "a.c"})
	c.Assert(inv.UnrecognizedFlags, DeepEquals, []string{"-qweird"})
}

func (s *ArgvLexTester) TestParseArchiverInvocation(c *C) {
	inv := ParseArchiverInvocation([]string{"rcs", "libfoo.a", "a.o", "b.o"})
	c.Assert(inv.Output, Equals, "libfoo.a")
	c.Assert(inv.Inputs, DeepEquals, []string{"a.o", "b.o"})
}

func (s *ArgvLexTester) TestNamerCollisions(c *C) {
	nm := NewNamer("")
	c.Assert(nm.Qualify("foo.c"), Equals, "//foo")
	c.Assert(nm.Qualify("foo.c"), Equals, "//foo_2")
	c.Assert(nm.Qualify("foo.c"), Equals, "//foo_3")
	c.Assert(nm.Qualify("bar.c"), Equals, "//bar")
}

func (s *ArgvLexTester) TestQualifyProjectRelative(c *C) {
	nm := NewNamer("/proj")
	c.Assert(nm.Qualify("/proj/src/sub/a.c"), Equals, "//src/sub:a")
}

func (s *ArgvLexTester) TestQualifySanitizesChars(c *C) {
	nm := NewNamer("")
	c.Assert(nm.Qualify("src/a+b.cc"), Equals, "//src:a_b")
}
