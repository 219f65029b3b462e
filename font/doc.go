// Package font loads bitmap fonts in the AngelCode BMFont text format.
//
// A font file has one info line, one common line, one page line per glyph
// texture, a "chars count=N" line and N char lines:
//
//	info face="Arial" size=32 bold=0 italic=0 ... padding=2,2,2,2 spacing=1,1
//	common lineHeight=32 base=26 scaleW=256 scaleH=256 pages=1 packed=0
//	page id=0 file="arial_0.png"
//	chars count=2
//	char id=65 x=0 y=0 width=20 height=24 xoffset=0 yoffset=2 xadvance=19 page=0 chnl=15
//	char id=66 x=20 y=0 width=18 height=24 xoffset=1 yoffset=2 xadvance=18 page=0 chnl=15
//
// Page files are resolved relative to the font file. Glyph ids must be below
// 65536; larger ids are skipped.
package font
